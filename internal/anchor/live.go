package anchor

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"attest/internal/credential/models"
	"attest/internal/platform/config"
	"attest/internal/sentinel"

	"attest/contracts/ledger"
)

// registryABI is the call surface of the credential registry contract. The
// contract's internal logic is opaque to this client.
const registryABI = `[
	{"type":"function","name":"anchor","stateMutability":"nonpayable","inputs":[{"name":"fingerprint","type":"bytes32"},{"name":"summary","type":"string"},{"name":"owner","type":"address"}],"outputs":[]},
	{"type":"function","name":"verify","stateMutability":"view","inputs":[{"name":"token","type":"bytes32"}],"outputs":[{"name":"summary","type":"string"},{"name":"fingerprint","type":"bytes32"},{"name":"anchoredAt","type":"uint64"},{"name":"valid","type":"bool"},{"name":"owner","type":"address"}]},
	{"type":"function","name":"tokenOf","stateMutability":"view","inputs":[{"name":"fingerprint","type":"bytes32"}],"outputs":[{"name":"token","type":"bytes32"},{"name":"summary","type":"string"},{"name":"valid","type":"bool"}]},
	{"type":"function","name":"revoke","stateMutability":"nonpayable","inputs":[{"name":"token","type":"bytes32"}],"outputs":[]}
]`

// LiveAnchorer anchors credentials on an EVM chain through the registry
// contract. All calls are bounded by the configured call timeout.
type LiveAnchorer struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	contractAddr common.Address
	auth         *bind.TransactOpts
	callTimeout  time.Duration
}

// NewLive dials the configured RPC endpoint and binds the registry contract.
func NewLive(cfg config.LedgerConfig) (*LiveAnchorer, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse ledger private key: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	addr := common.HexToAddress(cfg.ContractAddr)
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &LiveAnchorer{
		client:       client,
		contract:     bind.NewBoundContract(addr, parsed, client, client, client),
		contractAddr: addr,
		auth:         auth,
		callTimeout:  timeout,
	}, nil
}

// Close releases the underlying RPC connection.
func (a *LiveAnchorer) Close() {
	a.client.Close()
}

// fingerprintWord converts a 64-hex fingerprint into the contract's bytes32.
func fingerprintWord(fingerprint string) ([32]byte, error) {
	var word [32]byte
	raw, err := hex.DecodeString(fingerprint)
	if err != nil || len(raw) != 32 {
		return word, fmt.Errorf("fingerprint is not a 32-byte hex digest")
	}
	copy(word[:], raw)
	return word, nil
}

func (a *LiveAnchorer) Anchor(ctx context.Context, wallet string, payload models.AcademicPayload, fingerprint string) (ledger.AnchorReceipt, error) {
	word, err := fingerprintWord(fingerprint)
	if err != nil {
		return ledger.AnchorReceipt{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	opts := *a.auth
	opts.Context = ctx

	tx, err := a.contract.Transact(&opts, "anchor", word, payload.Summary(), common.HexToAddress(wallet))
	if err != nil {
		return ledger.AnchorReceipt{}, fmt.Errorf("anchor transaction: %w: %w", sentinel.ErrUnavailable, err)
	}

	receipt, err := bind.WaitMined(ctx, a.client, tx)
	if err != nil {
		return ledger.AnchorReceipt{}, fmt.Errorf("wait for anchor receipt: %w: %w", sentinel.ErrUnavailable, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ledger.AnchorReceipt{}, fmt.Errorf("anchor transaction reverted: %w", sentinel.ErrInvalidState)
	}

	return ledger.AnchorReceipt{
		Token:       crypto.Keccak256Hash(word[:]).Hex(),
		TxHash:      tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Contract:    a.contractAddr.Hex(),
		Wallet:      wallet,
	}, nil
}

func (a *LiveAnchorer) Verify(ctx context.Context, token string) (ledger.VerifyReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	var out []interface{}
	err := a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "verify", common.HexToHash(token))
	if err != nil {
		return ledger.VerifyReport{}, fmt.Errorf("verify call: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(out) != 5 {
		return ledger.VerifyReport{}, fmt.Errorf("verify call: unexpected output arity %d", len(out))
	}

	summary, _ := out[0].(string)
	fpWord, _ := out[1].([32]byte)
	anchoredAt, _ := out[2].(uint64)
	valid, _ := out[3].(bool)
	owner, _ := out[4].(common.Address)

	return ledger.VerifyReport{
		Token:       token,
		Fingerprint: hex.EncodeToString(fpWord[:]),
		Summary:     summary,
		AnchoredAt:  int64(anchoredAt),
		Valid:       valid,
		Owner:       owner.Hex(),
	}, nil
}

func (a *LiveAnchorer) VerifyByFingerprint(ctx context.Context, fingerprint string) (ledger.FingerprintReport, error) {
	word, err := fingerprintWord(fingerprint)
	if err != nil {
		return ledger.FingerprintReport{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	var out []interface{}
	err = a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "tokenOf", word)
	if err != nil {
		return ledger.FingerprintReport{}, fmt.Errorf("tokenOf call: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(out) != 3 {
		return ledger.FingerprintReport{}, fmt.Errorf("tokenOf call: unexpected output arity %d", len(out))
	}

	tokenWord, _ := out[0].([32]byte)
	summary, _ := out[1].(string)
	valid, _ := out[2].(bool)

	if tokenWord == ([32]byte{}) {
		return ledger.FingerprintReport{}, sentinel.ErrNotFound
	}

	return ledger.FingerprintReport{
		Token:   common.Hash(tokenWord).Hex(),
		Summary: summary,
		Valid:   valid,
	}, nil
}

func (a *LiveAnchorer) Revoke(ctx context.Context, token string) (ledger.RevocationReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	opts := *a.auth
	opts.Context = ctx

	tx, err := a.contract.Transact(&opts, "revoke", common.HexToHash(token))
	if err != nil {
		return ledger.RevocationReceipt{}, fmt.Errorf("revoke transaction: %w: %w", sentinel.ErrUnavailable, err)
	}

	receipt, err := bind.WaitMined(ctx, a.client, tx)
	if err != nil {
		return ledger.RevocationReceipt{}, fmt.Errorf("wait for revoke receipt: %w: %w", sentinel.ErrUnavailable, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ledger.RevocationReceipt{}, fmt.Errorf("revoke transaction reverted: %w", sentinel.ErrInvalidState)
	}

	return ledger.RevocationReceipt{
		TxHash:      tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

var _ Anchorer = (*LiveAnchorer)(nil)
