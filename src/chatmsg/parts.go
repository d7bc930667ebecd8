package chatmsg

import (
	"encoding/json"
	"fmt"
)

// PartType identifies the concrete kind of a message part.
type PartType string

const (
	PartTypeText    PartType = "text"
	PartTypeImage   PartType = "image"
	PartTypeThought PartType = "thought"
)

// Part is one piece of message content. It is a closed sum: the only
// implementations are TextPart, ImagePart and ThoughtPart.
type Part interface {
	Type() PartType
	part()
}

// TextPart is plain text content.
type TextPart struct {
	Text string `json:"text"`
}

// ImagePart is an inline image. Data carries the base64 payload while the
// message is in memory. Persisted conversations keep only AttachmentID and
// Preview; the full payload lives in the attachment blob store.
type ImagePart struct {
	Data         string `json:"data,omitempty"`
	MimeType     string `json:"mime_type"`
	AttachmentID string `json:"attachment_id,omitempty"`
	Preview      string `json:"preview,omitempty"`
}

// ThoughtPart is a model reasoning trace.
type ThoughtPart struct {
	Text string `json:"text"`
}

func (TextPart) Type() PartType    { return PartTypeText }
func (ImagePart) Type() PartType   { return PartTypeImage }
func (ThoughtPart) Type() PartType { return PartTypeThought }

func (TextPart) part()    {}
func (ImagePart) part()   {}
func (ThoughtPart) part() {}

// partEnvelope is the tagged wire/storage representation of a Part.
type partEnvelope struct {
	Type PartType        `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalParts serializes parts into their tagged JSON form.
func MarshalParts(parts []Part) ([]byte, error) {
	envelopes := make([]partEnvelope, 0, len(parts))
	for _, p := range parts {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s part: %w", p.Type(), err)
		}
		envelopes = append(envelopes, partEnvelope{Type: p.Type(), Data: data})
	}
	return json.Marshal(envelopes)
}

// UnmarshalParts parses the tagged JSON form back into concrete parts.
// Unknown part types are an error so corrupted records surface at load time
// instead of silently dropping content.
func UnmarshalParts(data []byte) ([]Part, error) {
	var envelopes []partEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parts: %w", err)
	}

	parts := make([]Part, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Type {
		case PartTypeText:
			var p TextPart
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return nil, fmt.Errorf("failed to unmarshal text part: %w", err)
			}
			parts = append(parts, p)
		case PartTypeImage:
			var p ImagePart
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return nil, fmt.Errorf("failed to unmarshal image part: %w", err)
			}
			parts = append(parts, p)
		case PartTypeThought:
			var p ThoughtPart
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return nil, fmt.Errorf("failed to unmarshal thought part: %w", err)
			}
			parts = append(parts, p)
		default:
			return nil, fmt.Errorf("unknown part type %q", env.Type)
		}
	}
	return parts, nil
}
