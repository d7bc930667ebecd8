package chatmsg

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single chat turn. Messages are immutable once created, with
// one exception: the last message of a conversation may have its parts, error
// flag and thinking duration replaced to finalize a streamed response.
type Message struct {
	ID               string        `json:"id"`
	Role             Role          `json:"role"`
	Parts            []Part        `json:"-"`
	CreatedAt        time.Time     `json:"-"`
	ThinkingDuration time.Duration `json:"-"`
	IsError          bool          `json:"is_error,omitempty"`
}

// NewMessage creates a message with a fresh id and the current timestamp.
func NewMessage(role Role, parts ...Part) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Parts:     parts,
		CreatedAt: time.Now(),
	}
}

// Text returns all text parts joined with newlines. Thought parts are not
// included; they are a separate semantic kind of content.
func (m *Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// ThoughtText returns all thought parts joined with newlines.
func (m *Message) ThoughtText() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(ThoughtPart); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// Images returns the image parts in order.
func (m *Message) Images() []ImagePart {
	var images []ImagePart
	for _, p := range m.Parts {
		if ip, ok := p.(ImagePart); ok {
			images = append(images, ip)
		}
	}
	return images
}

// IsThought reports whether the message is a thinking trace: every part is
// thought-tagged. A message with no parts is not a thought.
func (m *Message) IsThought() bool {
	if len(m.Parts) == 0 {
		return false
	}
	for _, p := range m.Parts {
		if p.Type() != PartTypeThought {
			return false
		}
	}
	return true
}

// HasImages reports whether any part is an image.
func (m *Message) HasImages() bool {
	return len(m.Images()) > 0
}

// Clone returns a shallow copy with its own parts slice, so callers can hold
// a snapshot that finalization of the original cannot mutate.
func (m *Message) Clone() *Message {
	cp := *m
	cp.Parts = make([]Part, len(m.Parts))
	copy(cp.Parts, m.Parts)
	return &cp
}
