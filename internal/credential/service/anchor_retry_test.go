package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"attest/contracts/ledger"
	anchormocks "attest/internal/anchor/mocks"
	"attest/internal/credential/models"
	"attest/internal/credential/service/mocks"
	"attest/internal/credential/store"
)

type AnchorRetrySuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockStore    *mocks.MockStore
	mockAnchorer *anchormocks.MockAnchorer
	worker       *AnchorRetryWorker
}

func TestAnchorRetrySuite(t *testing.T) {
	suite.Run(t, new(AnchorRetrySuite))
}

func (s *AnchorRetrySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockAnchorer = anchormocks.NewMockAnchorer(s.ctrl)
	s.worker = NewAnchorRetryWorker(s.mockStore, s.mockAnchorer,
		WithRetryGrace(30*time.Second),
		WithRetryBatchSize(10),
	)
}

func (s *AnchorRetrySuite) TearDownTest() {
	s.ctrl.Finish()
}

func pendingCredential(id string) models.Credential {
	return models.Credential{
		ID:            models.CredentialID(id),
		Fingerprint:   "f0e1d2c3b4a5968778695a4b3c2d1e0ff0e1d2c3b4a5968778695a4b3c2d1e0f",
		WalletAddress: "0x00000000000000000000000000000000000000a1",
		Status:        models.StatusPending,
	}
}

func (s *AnchorRetrySuite) TestRunOncePromotesPendingCredentials() {
	cred := pendingCredential("65a1b2c3d4e5f60718293b01")

	s.mockStore.EXPECT().
		ListPendingOlderThan(gomock.Any(), gomock.Any(), 10).
		Return([]models.Credential{cred}, nil)
	s.mockAnchorer.EXPECT().
		Anchor(gomock.Any(), cred.WalletAddress, gomock.Any(), cred.Fingerprint).
		Return(ledger.AnchorReceipt{Token: "0xtoken", TxHash: "0xtx", BlockNumber: 7, Contract: "0xc"}, nil)
	s.mockStore.EXPECT().
		Update(gomock.Any(), cred.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.CredentialID, update store.Update) error {
			s.Require().NotNil(update.Status)
			s.Equal(models.StatusMinted, *update.Status)
			s.Require().NotNil(update.AnchorToken)
			s.Equal("0xtoken", *update.AnchorToken)
			return nil
		})

	res, err := s.worker.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(1, res.Scanned)
	s.Equal(1, res.Anchored)
	s.Equal(0, res.Failed)
}

func (s *AnchorRetrySuite) TestRunOnceCountsFailuresAndContinues() {
	broken := pendingCredential("65a1b2c3d4e5f60718293b02")
	healthy := pendingCredential("65a1b2c3d4e5f60718293b03")

	s.mockStore.EXPECT().
		ListPendingOlderThan(gomock.Any(), gomock.Any(), 10).
		Return([]models.Credential{broken, healthy}, nil)
	s.mockAnchorer.EXPECT().
		Anchor(gomock.Any(), gomock.Any(), gomock.Any(), broken.Fingerprint).
		Return(ledger.AnchorReceipt{}, errors.New("rpc connection refused"))
	s.mockAnchorer.EXPECT().
		Anchor(gomock.Any(), gomock.Any(), gomock.Any(), healthy.Fingerprint).
		Return(ledger.AnchorReceipt{Token: "0xtoken"}, nil)
	s.mockStore.EXPECT().Update(gomock.Any(), healthy.ID, gomock.Any()).Return(nil)

	res, err := s.worker.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(2, res.Scanned)
	s.Equal(1, res.Anchored)
	s.Equal(1, res.Failed)
}

func (s *AnchorRetrySuite) TestRunOnceEmptyBatch() {
	s.mockStore.EXPECT().
		ListPendingOlderThan(gomock.Any(), gomock.Any(), 10).
		Return(nil, nil)

	res, err := s.worker.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(0, res.Scanned)
}

func (s *AnchorRetrySuite) TestRunOncePropagatesListError() {
	s.mockStore.EXPECT().
		ListPendingOlderThan(gomock.Any(), gomock.Any(), 10).
		Return(nil, errors.New("connection reset"))

	res, err := s.worker.RunOnce(context.Background())

	s.Require().Error(err)
	s.Nil(res)
}

func (s *AnchorRetrySuite) TestRunOnceRespectsGrace() {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	worker := NewAnchorRetryWorker(s.mockStore, s.mockAnchorer,
		WithRetryGrace(time.Minute),
		WithRetryBatchSize(10),
		WithRetryClock(func() time.Time { return now }),
	)

	s.mockStore.EXPECT().
		ListPendingOlderThan(gomock.Any(), now.Add(-time.Minute), 10).
		Return(nil, nil)

	_, err := worker.RunOnce(context.Background())
	s.Require().NoError(err)
}

func TestAnchorRetryWorkerStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockStore := mocks.NewMockStore(ctrl)
	mockAnchorer := anchormocks.NewMockAnchorer(ctrl)
	mockStore.EXPECT().
		ListPendingOlderThan(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	worker := NewAnchorRetryWorker(mockStore, mockAnchorer, WithRetryInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
