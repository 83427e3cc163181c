package ledger

// ContractVersion identifies the schema for anchor receipts shared across services.
const ContractVersion = "v0.1.0"

// AnchorReceipt reports a successful anchoring of a credential fingerprint.
type AnchorReceipt struct {
	Token       string `json:"token"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Contract    string `json:"contract,omitempty"`
	Wallet      string `json:"wallet,omitempty"`
}

// VerifyReport is the ledger-side view of an anchored credential.
type VerifyReport struct {
	Token       string `json:"token"`
	Fingerprint string `json:"fingerprint"`
	Summary     string `json:"summary,omitempty"`
	AnchoredAt  int64  `json:"anchored_at"`
	Valid       bool   `json:"valid"`
	Owner       string `json:"owner,omitempty"`
}

// FingerprintReport resolves a fingerprint to its anchor token, if any.
type FingerprintReport struct {
	Token   string `json:"token"`
	Summary string `json:"summary,omitempty"`
	Valid   bool   `json:"valid"`
}

// RevocationReceipt reports a ledger-side revocation.
type RevocationReceipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}
