package chatmsg

import (
	"encoding/json"
	"time"
)

// messageJSON is the persisted form of a Message. Timestamps are epoch
// milliseconds so records written by older clients stay readable.
type messageJSON struct {
	ID                 string          `json:"id"`
	Role               Role            `json:"role"`
	Parts              json.RawMessage `json:"parts"`
	CreatedAt          int64           `json:"created_at"`
	ThinkingDurationMS int64           `json:"thinking_duration_ms,omitempty"`
	IsError            bool            `json:"is_error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m *Message) MarshalJSON() ([]byte, error) {
	parts, err := MarshalParts(m.Parts)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		ID:                 m.ID,
		Role:               m.Role,
		Parts:              parts,
		CreatedAt:          m.CreatedAt.UnixMilli(),
		ThinkingDurationMS: m.ThinkingDuration.Milliseconds(),
		IsError:            m.IsError,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return err
	}
	parts, err := UnmarshalParts(mj.Parts)
	if err != nil {
		return err
	}
	m.ID = mj.ID
	m.Role = mj.Role
	m.Parts = parts
	m.CreatedAt = time.UnixMilli(mj.CreatedAt)
	m.ThinkingDuration = time.Duration(mj.ThinkingDurationMS) * time.Millisecond
	m.IsError = mj.IsError
	return nil
}

// MarshalMessages serializes a message list for storage.
func MarshalMessages(messages []*Message) ([]byte, error) {
	if messages == nil {
		messages = []*Message{}
	}
	return json.Marshal(messages)
}

// UnmarshalMessages parses a stored message list.
func UnmarshalMessages(data []byte) ([]*Message, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var messages []*Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
