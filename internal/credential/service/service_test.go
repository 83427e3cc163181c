package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attest/contracts/ledger"
	anchormocks "attest/internal/anchor/mocks"
	"attest/internal/audit"
	"attest/internal/credential/models"
	"attest/internal/credential/service/mocks"
	"attest/internal/credential/store"
	"attest/internal/organization"
	"attest/internal/qr"
	dErrors "attest/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockStore    *mocks.MockStore
	mockAnchorer *anchormocks.MockAnchorer
	orgs         *organization.InMemoryStore
	auditStore   *audit.InMemoryStore
	service      *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockAnchorer = anchormocks.NewMockAnchorer(s.ctrl)
	s.orgs = organization.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()

	s.orgs.Put(organization.Organization{
		ID:            "org-1",
		Code:          "MIT",
		Name:          "Massachusetts Institute of Technology",
		Authorized:    true,
		WalletAddress: "0x00000000000000000000000000000000000000a1",
	})
	s.orgs.Associate("issuer-1", "org-1")

	s.service = NewService(s.mockStore, s.orgs, s.mockAnchorer, qr.New("https://attest.example.org"),
		WithLogger(slog.Default()),
		WithAuditor(audit.NewRecorder(s.auditStore, slog.Default())),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func validPayload() models.AcademicPayload {
	return models.AcademicPayload{
		StudentName:   "Ada Lovelace",
		RollNumber:    "CS-1815",
		Program:       "B.Tech Computer Science",
		YearOfPassing: 2025,
		Grades:        []models.GradeEntry{{Course: "Algorithms", Grade: "A", Credit: 4}},
	}
}

func (s *ServiceSuite) TestIssueAnchorsAndMints() {
	const assignedID = models.CredentialID("65a1b2c3d4e5f60718293a4b")

	s.mockStore.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cred *models.Credential) (models.CredentialID, error) {
			s.Equal(models.StatusPending, cred.Status)
			s.Equal("org-1", cred.OrganizationID)
			s.Equal("issuer-1", cred.IssuerID)
			s.Len(cred.Fingerprint, 64)
			s.NotEmpty(cred.AccessCode)
			s.Equal("0x00000000000000000000000000000000000000a1", cred.WalletAddress)
			return assignedID, nil
		})
	s.mockStore.EXPECT().Update(gomock.Any(), assignedID, gomock.Any()).Return(nil).Times(2)
	s.mockAnchorer.EXPECT().
		Anchor(gomock.Any(), "0x00000000000000000000000000000000000000a1", gomock.Any(), gomock.Any()).
		Return(ledger.AnchorReceipt{
			Token:       "0xtoken",
			TxHash:      "0xtx",
			BlockNumber: 42,
			Contract:    "0xcontract",
		}, nil)

	result, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-1",
		Payload:  validPayload(),
	})

	s.Require().NoError(err)
	s.Equal(assignedID, result.ID)
	s.Equal(models.StatusMinted, result.Status)
	s.Equal("0xtoken", result.AnchorToken)
	s.Equal("0xtx", result.AnchorTxHash)
	s.Empty(result.Warning)
	s.Equal("https://attest.example.org/verify/"+assignedID.String(), result.VerificationURL)

	events, err := s.auditStore.ListByCredential(context.Background(), assignedID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionIssued, events[0].Action)
	s.Equal(audit.ActionMinted, events[1].Action)
}

func (s *ServiceSuite) TestIssueSucceedsWhenLedgerIsDown() {
	const assignedID = models.CredentialID("65a1b2c3d4e5f60718293a4c")

	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(assignedID, nil)
	s.mockStore.EXPECT().Update(gomock.Any(), assignedID, gomock.Any()).Return(nil)
	s.mockAnchorer.EXPECT().
		Anchor(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ledger.AnchorReceipt{}, dErrors.New(dErrors.CodeLedgerUnavailable, "rpc connection refused"))

	result, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-1",
		Payload:  validPayload(),
	})

	s.Require().NoError(err, "issuance must not fail when the ledger is down")
	s.Equal(models.StatusPending, result.Status)
	s.NotEmpty(result.AccessCode)
	s.Empty(result.AnchorToken)
	s.NotEmpty(result.Warning)

	events, err := s.auditStore.ListByCredential(context.Background(), assignedID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionAnchorFailed, events[1].Action)
}

func (s *ServiceSuite) TestIssueRetriesOnDuplicateFingerprint() {
	const assignedID = models.CredentialID("65a1b2c3d4e5f60718293a4d")

	first := s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.CredentialID(""), store.ErrDuplicateFingerprint)
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).After(first).Return(assignedID, nil)
	s.mockStore.EXPECT().Update(gomock.Any(), assignedID, gomock.Any()).Return(nil).Times(2)
	s.mockAnchorer.EXPECT().
		Anchor(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(ledger.AnchorReceipt{Token: "0xtoken"}, nil)

	result, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-1",
		Payload:  validPayload(),
	})

	s.Require().NoError(err)
	s.Equal(assignedID, result.ID)
}

func (s *ServiceSuite) TestIssueFailsAfterRetriesExhausted() {
	s.mockStore.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(models.CredentialID(""), store.ErrDuplicateAccessCode).
		Times(maxIssueAttempts)

	_, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-1",
		Payload:  validPayload(),
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIssuanceFailed))
}

func (s *ServiceSuite) TestIssueRejectsUnassociatedIssuer() {
	_, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "stranger",
		Payload:  validPayload(),
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAssociated))
}

func (s *ServiceSuite) TestIssueRejectsAmbiguousAssociation() {
	s.orgs.Put(organization.Organization{ID: "org-2", Code: "CAL", Authorized: true})
	s.orgs.Associate("issuer-1", "org-2")

	_, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-1",
		Payload:  validPayload(),
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAssociated))
}

func (s *ServiceSuite) TestIssueRejectsUnauthorizedOrganization() {
	s.orgs.Put(organization.Organization{ID: "org-3", Code: "XYZ", Authorized: false})
	s.orgs.Associate("issuer-3", "org-3")

	_, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-3",
		Payload:  validPayload(),
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestIssueRejectsInvalidPayload() {
	payload := validPayload()
	payload.StudentName = "  "

	_, err := s.service.Issue(context.Background(), models.IssueRequest{
		IssuerID: "issuer-1",
		Payload:  payload,
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRevokeMintedCredential() {
	id := models.CredentialID("65a1b2c3d4e5f60718293a4e")
	s.mockStore.EXPECT().FindByID(gomock.Any(), id).Return(models.Credential{
		ID:          id,
		Status:      models.StatusMinted,
		AnchorToken: "0xtoken",
	}, nil)
	s.mockAnchorer.EXPECT().Revoke(gomock.Any(), "0xtoken").Return(ledger.RevocationReceipt{TxHash: "0xrevoke"}, nil)
	s.mockStore.EXPECT().
		Update(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.CredentialID, update store.Update) error {
			s.Require().NotNil(update.Status)
			s.Equal(models.StatusRevoked, *update.Status)
			s.Require().NotNil(update.RevocationReason)
			s.Equal("degree rescinded", *update.RevocationReason)
			return nil
		})

	cred, err := s.service.Revoke(context.Background(), id, "issuer-1", "degree rescinded")

	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, cred.Status)
	s.Equal("degree rescinded", cred.RevocationReason)
}

func (s *ServiceSuite) TestRevokeSurvivesLedgerFailure() {
	id := models.CredentialID("65a1b2c3d4e5f60718293a4f")
	s.mockStore.EXPECT().FindByID(gomock.Any(), id).Return(models.Credential{
		ID:          id,
		Status:      models.StatusMinted,
		AnchorToken: "0xtoken",
	}, nil)
	s.mockAnchorer.EXPECT().Revoke(gomock.Any(), "0xtoken").
		Return(ledger.RevocationReceipt{}, errors.New("rpc timeout"))
	s.mockStore.EXPECT().Update(gomock.Any(), id, gomock.Any()).Return(nil)

	cred, err := s.service.Revoke(context.Background(), id, "issuer-1", "fraud")

	s.Require().NoError(err, "local revocation is authoritative")
	s.Equal(models.StatusRevoked, cred.Status)
}

func (s *ServiceSuite) TestRevokePendingSkipsLedger() {
	id := models.CredentialID("65a1b2c3d4e5f60718293a50")
	s.mockStore.EXPECT().FindByID(gomock.Any(), id).Return(models.Credential{
		ID:     id,
		Status: models.StatusPending,
	}, nil)
	s.mockStore.EXPECT().Update(gomock.Any(), id, gomock.Any()).Return(nil)

	_, err := s.service.Revoke(context.Background(), id, "issuer-1", "typo in payload")

	s.Require().NoError(err)
}

func (s *ServiceSuite) TestRevokeAlreadyRevoked() {
	id := models.CredentialID("65a1b2c3d4e5f60718293a51")
	s.mockStore.EXPECT().FindByID(gomock.Any(), id).Return(models.Credential{
		ID:     id,
		Status: models.StatusRevoked,
	}, nil)

	_, err := s.service.Revoke(context.Background(), id, "issuer-1", "again")

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
}

func (s *ServiceSuite) TestRevokeNotFound() {
	id := models.CredentialID("65a1b2c3d4e5f60718293a52")
	s.mockStore.EXPECT().FindByID(gomock.Any(), id).Return(models.Credential{}, store.ErrNotFound)

	_, err := s.service.Revoke(context.Background(), id, "issuer-1", "missing")

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestListForIssuer() {
	s.mockStore.EXPECT().ListByOrganization(gomock.Any(), "org-1").Return([]models.Credential{
		{ID: "65a1b2c3d4e5f60718293a53", OrganizationID: "org-1"},
	}, nil)

	creds, err := s.service.ListForIssuer(context.Background(), "issuer-1")

	s.Require().NoError(err)
	s.Require().Len(creds, 1)
	s.Equal("org-1", creds[0].OrganizationID)
}

func (s *ServiceSuite) TestQRCodePNG() {
	id := models.CredentialID("65a1b2c3d4e5f60718293a54")
	s.mockStore.EXPECT().FindByID(gomock.Any(), id).Return(models.Credential{
		ID:        id,
		QRPayload: "https://attest.example.org/verify/" + id.String(),
	}, nil)

	png, err := s.service.QRCodePNG(context.Background(), id, 256)

	s.Require().NoError(err)
	s.NotEmpty(png)
	s.Equal([]byte{0x89, 'P', 'N', 'G'}, png[:4])
}
