// Package models defines the credential aggregate and its lifecycle states.
//
// A credential is immutable once issued: the academic payload, fingerprint,
// and access code never change. Only anchoring fields, lifecycle status, and
// usage statistics are mutated after creation, and only through the lifecycle
// manager and verification engine.
package models

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	dErrors "attest/pkg/domain-errors"
)

// Status is the lifecycle state of a credential.
type Status string

const (
	// StatusPending means the record is persisted locally but not yet anchored.
	StatusPending Status = "PENDING"
	// StatusMinted means the fingerprint has been anchored on the ledger.
	StatusMinted Status = "MINTED"
	// StatusVerified is an observational state entered after a successful
	// verification of a minted credential. It does not block revocation.
	StatusVerified Status = "VERIFIED"
	// StatusRevoked is terminal. No transition leaves it.
	StatusRevoked Status = "REVOKED"
)

// CanTransitionTo reports whether the state machine permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusMinted || next == StatusRevoked
	case StatusMinted:
		return next == StatusVerified || next == StatusRevoked
	case StatusVerified:
		return next == StatusRevoked
	case StatusRevoked:
		return false
	}
	return false
}

// Active reports whether the credential counts as valid locally.
func (s Status) Active() bool {
	return s == StatusMinted || s == StatusVerified
}

const credentialIDLength = 24

var (
	credentialIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)
	fingerprintPattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// CredentialID is the store-assigned 24-hex-character credential identifier.
type CredentialID string

// NewCredentialID generates a new identifier: a 4-byte big-endian unix
// timestamp followed by 8 random bytes, hex encoded. The timestamp prefix
// keeps identifiers roughly sortable by creation time.
func NewCredentialID() CredentialID {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(buf[4:]); err != nil {
		// crypto/rand failing means the process is in no state to continue.
		panic("models: crypto/rand unavailable: " + err.Error())
	}
	return CredentialID(hex.EncodeToString(buf[:]))
}

// ParseCredentialID validates and parses a credential ID string.
func ParseCredentialID(value string) (CredentialID, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential_id is required")
	}
	if len(value) != credentialIDLength || !credentialIDPattern.MatchString(value) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential_id must be 24 hex characters")
	}
	return CredentialID(value), nil
}

// String returns the credential ID as a string.
func (id CredentialID) String() string {
	return string(id)
}

// ParseFingerprint validates a 64-hex-character content fingerprint.
func ParseFingerprint(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fingerprint is required")
	}
	if !fingerprintPattern.MatchString(value) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "fingerprint must be 64 hex characters")
	}
	return value, nil
}

// GradeEntry is a single course result within the academic payload.
type GradeEntry struct {
	Course string `json:"course"`
	Grade  string `json:"grade"`
	Credit int    `json:"credit,omitempty"`
}

// AcademicPayload is the immutable student and academic data a credential
// attests to. It is open-ended: Attributes carries issuer-specific fields.
type AcademicPayload struct {
	StudentName   string            `json:"student_name"`
	StudentEmail  string            `json:"student_email,omitempty"`
	RollNumber    string            `json:"roll_number"`
	Program       string            `json:"program"`
	Department    string            `json:"department,omitempty"`
	YearOfPassing int               `json:"year_of_passing"`
	CGPA          string            `json:"cgpa,omitempty"`
	Grades        []GradeEntry      `json:"grades"`
	Skills        []string          `json:"skills"`
	Achievements  []string          `json:"achievements"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Normalized returns a copy with nil collections replaced by empty ones so
// downstream consumers never see null.
func (p AcademicPayload) Normalized() AcademicPayload {
	if p.Grades == nil {
		p.Grades = []GradeEntry{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Achievements == nil {
		p.Achievements = []string{}
	}
	return p
}

// Validate checks the fields every credential must carry.
func (p AcademicPayload) Validate() error {
	if strings.TrimSpace(p.StudentName) == "" {
		return dErrors.New(dErrors.CodeValidation, "student_name is required")
	}
	if strings.TrimSpace(p.RollNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "roll_number is required")
	}
	if strings.TrimSpace(p.Program) == "" {
		return dErrors.New(dErrors.CodeValidation, "program is required")
	}
	if p.YearOfPassing < 1900 || p.YearOfPassing > 2200 {
		return dErrors.New(dErrors.CodeValidation, "year_of_passing is out of range")
	}
	return nil
}

// Summary renders the compact human-readable form committed to the ledger.
func (p AcademicPayload) Summary() string {
	parts := []string{p.StudentName, p.RollNumber, p.Program}
	if p.YearOfPassing > 0 {
		parts = append(parts, strconv.Itoa(p.YearOfPassing))
	}
	return strings.Join(parts, " | ")
}

// Credential is the central entity: a content-addressed, optionally anchored
// academic credential record.
type Credential struct {
	ID          CredentialID    `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	AccessCode  string          `json:"access_code"`
	Payload     AcademicPayload `json:"payload"`

	OrganizationID string `json:"organization_id"`
	IssuerID       string `json:"issuer_id"`

	// Anchoring state; empty until a confirmed anchor success.
	AnchorToken     string `json:"anchor_token,omitempty"`
	AnchorTxHash    string `json:"anchor_tx_hash,omitempty"`
	AnchorBlock     uint64 `json:"anchor_block,omitempty"`
	WalletAddress   string `json:"wallet_address,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`

	VerificationURL  string `json:"verification_url,omitempty"`
	QRPayload        string `json:"qr_payload,omitempty"`
	RevocationReason string `json:"revocation_reason,omitempty"`

	Status Status `json:"status"`

	VerifyCount    int64      `json:"verify_count"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`

	IssuedAt  time.Time `json:"issued_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IssueRequest captures the data required to issue a credential.
type IssueRequest struct {
	IssuerID string
	Payload  AcademicPayload
}

// IssueResult is returned to the caller after issuance. Warning is set when
// anchoring did not complete; issuance itself still succeeded.
type IssueResult struct {
	ID              CredentialID `json:"id"`
	Fingerprint     string       `json:"fingerprint"`
	AccessCode      string       `json:"access_code"`
	VerificationURL string       `json:"verification_url"`
	QRPayload       string       `json:"qr_payload"`
	Status          Status       `json:"status"`
	AnchorToken     string       `json:"anchor_token,omitempty"`
	AnchorTxHash    string       `json:"anchor_tx_hash,omitempty"`
	Warning         string       `json:"warning,omitempty"`
}
