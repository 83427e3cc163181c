package audit

import (
	"context"
	"log/slog"
)

// Publisher accepts lifecycle events. Emit must never block domain logic on
// sink failures; implementations log and move on.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists events for later listing.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCredential(ctx context.Context, credentialID string) ([]Event, error)
}

// Recorder writes events to a store and mirrors them to the log.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder builds a Recorder. A nil store degrades to log-only.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) Emit(ctx context.Context, event Event) error {
	r.logger.InfoContext(ctx, "audit event",
		"event_id", event.ID,
		"action", event.Action,
		"credential_id", event.CredentialID,
		"actor", event.Actor,
		"request_id", event.RequestID,
	)
	if r.store == nil {
		return nil
	}
	if err := r.store.Append(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "failed to append audit event",
			"event_id", event.ID,
			"error", err,
		)
	}
	return nil
}

var _ Publisher = (*Recorder)(nil)
