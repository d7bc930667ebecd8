// Package identity resolves which sync identity a session runs under: an
// authenticated session token, an anonymous durable visitor id, or none at
// all (local-only mode).
package identity

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mlevan/parley/src/convstore"
)

// Kind names the identity a session resolved to.
type Kind string

const (
	KindSession Kind = "session"
	KindVisitor Kind = "visitor"
	KindNone    Kind = "none"
)

// Identity is the resolved sync identity for this session. Exactly one of
// SessionToken and VisitorID is set, or neither when the client must stay
// local-only.
type Identity struct {
	SessionToken string
	VisitorID    string
}

// Resolve determines the session's identity. A session token wins outright;
// otherwise a durable anonymous visitor id is loaded from client state,
// minted on first run. A failure to load or persist the visitor id degrades
// to local-only mode rather than failing startup.
func Resolve(ctx context.Context, db *convstore.DB, sessionToken string, logger *slog.Logger) *Identity {
	logger = logger.With("component", "identity")

	if sessionToken != "" {
		if err := recordTokenHint(ctx, db, sessionToken); err != nil {
			logger.Warn("failed to record session token hint", "error", err)
		}
		return &Identity{SessionToken: sessionToken}
	}

	state, err := convstore.GetClientState(ctx, db.DB())
	if err != nil {
		logger.Warn("failed to load client state, running local-only", "error", err)
		return &Identity{}
	}

	if state.VisitorID == "" {
		state.VisitorID = uuid.NewString()
		if err := convstore.SaveClientState(ctx, db.DB(), state); err != nil {
			// An unpersisted visitor id would orphan server conversations on
			// the next run, so stay local-only instead.
			logger.Warn("failed to persist visitor id, running local-only", "error", err)
			return &Identity{}
		}
		logger.Info("minted anonymous visitor id", "visitor_id", state.VisitorID)
	}

	return &Identity{VisitorID: state.VisitorID}
}

// CanSync reports whether any sync identity is available. Without one the
// engine never enqueues deliveries.
func (id *Identity) CanSync() bool {
	return id.SessionToken != "" || id.VisitorID != ""
}

// Kind names the resolved identity for status display.
func (id *Identity) Kind() Kind {
	switch {
	case id.SessionToken != "":
		return KindSession
	case id.VisitorID != "":
		return KindVisitor
	default:
		return KindNone
	}
}

// recordTokenHint stores a non-sensitive suffix of the session token so the
// status command can show which credential is active.
func recordTokenHint(ctx context.Context, db *convstore.DB, token string) error {
	state, err := convstore.GetClientState(ctx, db.DB())
	if err != nil {
		return err
	}
	hint := token
	if len(hint) > 4 {
		hint = "..." + hint[len(hint)-4:]
	}
	if state.APIKeyHint == hint {
		return nil
	}
	state.APIKeyHint = hint
	return convstore.SaveClientState(ctx, db.DB(), state)
}
