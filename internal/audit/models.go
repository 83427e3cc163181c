package audit

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is emitted from domain logic to capture key credential lifecycle
// actions. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string
	Timestamp    time.Time
	CredentialID string
	Action       Action
	Actor        string
	Reason       string
	Device       string
	RequestID    string
}

// Action names the lifecycle event being recorded.
type Action string

const (
	ActionIssued       Action = "credential_issued"
	ActionMinted       Action = "credential_minted"
	ActionAnchorFailed Action = "credential_anchor_failed"
	ActionVerified     Action = "credential_verified"
	ActionRevoked      Action = "credential_revoked"
	ActionShared       Action = "credential_shared"
)

// NewEvent stamps an event with a fresh ULID and timestamp.
func NewEvent(credentialID string, action Action) Event {
	return Event{
		ID:           ulid.Make().String(),
		Timestamp:    time.Now().UTC(),
		CredentialID: credentialID,
		Action:       action,
	}
}
