package convstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// ErrAttachmentNotFound is returned when an attachment payload is missing
// from the bulk store.
var ErrAttachmentNotFound = errors.New("attachment not found")

// AttachmentID derives the content-addressed identifier for a payload.
// Content addressing makes blob writes idempotent, which the rehydration
// migration relies on.
func AttachmentID(data []byte) string {
	sum := sha256.Sum256(data)
	return "att_" + hex.EncodeToString(sum[:])
}

// PutAttachment stores a payload in the bulk store and returns its id.
// Storing the same payload twice is a no-op.
func PutAttachment(ctx context.Context, db Execer, mimeType string, data []byte) (string, error) {
	id := AttachmentID(data)
	query := `INSERT INTO attachments (id, mime_type, data, created_at) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`
	if _, err := db.ExecContext(ctx, query, id, mimeType, data, time.Now()); err != nil {
		return "", err
	}
	return id, nil
}

// GetAttachment retrieves an attachment by id.
func GetAttachment(ctx context.Context, db sqlscan.Querier, id string) (*Attachment, error) {
	query := `SELECT id, mime_type, data, created_at FROM attachments WHERE id = ?`
	var a Attachment
	err := sqlscan.Get(ctx, db, &a, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// HasAttachment reports whether the bulk store holds the given id.
func HasAttachment(ctx context.Context, db sqlscan.Querier, id string) (bool, error) {
	var n int
	err := sqlscan.Get(ctx, db, &n, `SELECT COUNT(*) FROM attachments WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAttachment removes an attachment from the bulk store. Deleting a
// missing attachment is not an error; the migration pass purges corrupt
// records best-effort.
func DeleteAttachment(ctx context.Context, db Execer, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	return err
}
