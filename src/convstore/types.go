package convstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlevan/parley/src/chatmsg"
)

// Conversation is a locally cached conversation. ID is the client-minted
// local identifier; ServerID is set exactly once, after the first successful
// creation on the server, and is never cleared short of deletion.
type Conversation struct {
	ID           string    `db:"id"`
	ServerID     *string   `db:"server_id"`
	Title        string    `db:"title"`
	Model        string    `db:"model"`
	RawMessages  []byte    `db:"messages"`
	MessageCount int       `db:"message_count"`
	SyncedCount  int       `db:"synced_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Messages decodes the stored message list.
func (c *Conversation) Messages() ([]*chatmsg.Message, error) {
	return chatmsg.UnmarshalMessages(c.RawMessages)
}

// SetMessages encodes the message list into the row and keeps MessageCount
// equal to the list length.
func (c *Conversation) SetMessages(messages []*chatmsg.Message) error {
	raw, err := chatmsg.MarshalMessages(messages)
	if err != nil {
		return err
	}
	c.RawMessages = raw
	c.MessageCount = len(messages)
	return nil
}

// HasServerID reports whether the conversation has been reconciled with a
// server identifier.
func (c *Conversation) HasServerID() bool {
	return c.ServerID != nil && *c.ServerID != ""
}

// ConversationMeta contains metadata for listing conversations without
// decoding their message lists.
type ConversationMeta struct {
	ID           string    `db:"id"`
	ServerID     *string   `db:"server_id"`
	Title        string    `db:"title"`
	Model        string    `db:"model"`
	MessageCount int       `db:"message_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Attachment is a bulk-store record for one image payload, keyed by the
// content-derived attachment id.
type Attachment struct {
	ID        string    `db:"id"`
	MimeType  string    `db:"mime_type"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// ClientState is the single persisted record of per-profile scalar state.
type ClientState struct {
	ID                   int             `db:"id"`
	APIKeyHint           string          `db:"api_key_hint"`
	VisitorID            string          `db:"visitor_id"`
	ActiveConversationID string          `db:"active_conversation_id"`
	UsageCount           int             `db:"usage_count"`
	EndpointHistory      JSONStringArray `db:"endpoint_history"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// JSONStringArray is a custom type for handling JSON arrays stored as strings in the database
type JSONStringArray []string

// Scan implements the sql.Scanner interface for JSONStringArray
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = []string{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" || v == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	case []byte:
		if len(v) == 0 || string(v) == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal(v, j)
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
}

// Value implements the driver.Valuer interface for JSONStringArray
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
