package convstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/lithammer/shortuuid/v4"
)

// ErrNotFound is returned when a conversation doesn't exist locally.
var ErrNotFound = errors.New("conversation not found")

// ErrServerIDAlreadySet is returned when a reconciliation would overwrite an
// existing server identifier. The server id transitions absent→present
// exactly once.
var ErrServerIDAlreadySet = errors.New("conversation already has a server id")

// NewLocalID mints a globally unique local conversation identifier.
func NewLocalID() string {
	return "local-" + shortuuid.New()
}

// GetConversation retrieves a conversation by its local ID
func GetConversation(ctx context.Context, db sqlscan.Querier, id string) (*Conversation, error) {
	query := `SELECT id, server_id, title, model, messages, message_count, synced_count, created_at, updated_at FROM conversations WHERE id = ?`
	var c Conversation
	err := sqlscan.Get(ctx, db, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListConversations returns metadata for all cached conversations, most
// recently updated first.
func ListConversations(ctx context.Context, db sqlscan.Querier) ([]ConversationMeta, error) {
	query := `SELECT id, server_id, title, model, message_count, created_at, updated_at FROM conversations ORDER BY updated_at DESC`
	var metas []ConversationMeta
	if err := sqlscan.Select(ctx, db, &metas, query); err != nil {
		return nil, err
	}
	return metas, nil
}

// MostRecentlyUpdated returns the conversation with the newest updated_at,
// or nil when the cache is empty.
func MostRecentlyUpdated(ctx context.Context, db sqlscan.Querier) (*Conversation, error) {
	query := `SELECT id, server_id, title, model, messages, message_count, synced_count, created_at, updated_at FROM conversations ORDER BY updated_at DESC LIMIT 1`
	var c Conversation
	err := sqlscan.Get(ctx, db, &c, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CreateConversation inserts a new local conversation. A missing ID is
// minted; timestamps default to now.
func CreateConversation(ctx context.Context, db Execer, c *Conversation) error {
	if c.ID == "" {
		c.ID = NewLocalID()
	}
	if len(c.RawMessages) == 0 {
		c.RawMessages = []byte("[]")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	query := `INSERT INTO conversations (id, server_id, title, model, messages, message_count, synced_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, c.ID, c.ServerID, c.Title, c.Model, string(c.RawMessages), c.MessageCount, c.SyncedCount, c.CreatedAt, c.UpdatedAt)
	return err
}

// SaveConversation rewrites a conversation's mutable fields (title, model,
// message list) and bumps updated_at.
func SaveConversation(ctx context.Context, db Execer, c *Conversation) error {
	c.UpdatedAt = time.Now()
	query := `UPDATE conversations SET title = ?, model = ?, messages = ?, message_count = ?, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, c.Title, c.Model, string(c.RawMessages), c.MessageCount, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetServerID stamps the reconciled server identifier onto a conversation.
// The guard in the WHERE clause keeps the transition monotonic: a second
// call for the same conversation fails with ErrServerIDAlreadySet.
func SetServerID(ctx context.Context, db ExecQuerier, id, serverID string) error {
	query := `UPDATE conversations SET server_id = ?, updated_at = ? WHERE id = ? AND (server_id IS NULL OR server_id = '')`
	res, err := db.ExecContext(ctx, query, serverID, time.Now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := GetConversation(ctx, db, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: %s", ErrServerIDAlreadySet, id)
	}
	return nil
}

// UpdateTitle sets the conversation title locally.
func UpdateTitle(ctx context.Context, db Execer, id, title string) error {
	query := `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, title, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSyncedCount records how many of the conversation's messages the server
// has acknowledged.
func SetSyncedCount(ctx context.Context, db Execer, id string, count int) error {
	query := `UPDATE conversations SET synced_count = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, count, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConversation removes a conversation from the cache.
func DeleteConversation(ctx context.Context, db Execer, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
