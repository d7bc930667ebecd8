package convstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// GetClientState retrieves the single client state record, creating an empty
// one on first access.
func GetClientState(ctx context.Context, db ExecQuerier) (*ClientState, error) {
	query := `SELECT id, api_key_hint, visitor_id, active_conversation_id, usage_count, endpoint_history, updated_at FROM client_state WHERE id = 1`
	var s ClientState
	err := sqlscan.Get(ctx, db, &s, query)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	s = ClientState{ID: 1, EndpointHistory: JSONStringArray{}, UpdatedAt: time.Now()}
	insert := `INSERT INTO client_state (id, api_key_hint, visitor_id, active_conversation_id, usage_count, endpoint_history, updated_at) VALUES (1, '', '', '', 0, '[]', ?)`
	if _, err := db.ExecContext(ctx, insert, s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveClientState persists the client state record.
func SaveClientState(ctx context.Context, db Execer, s *ClientState) error {
	s.ID = 1
	s.UpdatedAt = time.Now()
	query := `UPDATE client_state SET api_key_hint = ?, visitor_id = ?, active_conversation_id = ?, usage_count = ?, endpoint_history = ?, updated_at = ? WHERE id = 1`
	_, err := db.ExecContext(ctx, query, s.APIKeyHint, s.VisitorID, s.ActiveConversationID, s.UsageCount, s.EndpointHistory, s.UpdatedAt)
	return err
}

// RecordEndpoint adds an endpoint to the history, most recent first, without
// duplicates. History is capped so the state row stays small.
func (s *ClientState) RecordEndpoint(endpoint string) {
	if endpoint == "" {
		return
	}
	const maxHistory = 10
	history := JSONStringArray{endpoint}
	for _, e := range s.EndpointHistory {
		if e != endpoint && len(history) < maxHistory {
			history = append(history, e)
		}
	}
	s.EndpointHistory = history
}
