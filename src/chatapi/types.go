package chatapi

import "time"

// Conversation is a server-side conversation record.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ImagePayload is an inline image attached to a message.
type ImagePayload struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mime_type"`
}

// CreateConversationRequest creates a new server conversation. All fields are
// optional; Endpoint carries a custom endpoint hint when the user has one
// established.
type CreateConversationRequest struct {
	Title    string `json:"title,omitempty"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// CreateConversationResponse carries the server-assigned identifier.
type CreateConversationResponse struct {
	ID string `json:"id"`
}

// AppendMessageRequest appends one message to a conversation.
type AppendMessageRequest struct {
	Role               string         `json:"role"`
	Content            string         `json:"content"`
	Images             []ImagePayload `json:"images,omitempty"`
	IsThought          bool           `json:"is_thought,omitempty"`
	ThinkingDurationMS int64          `json:"thinking_duration_ms,omitempty"`
}

// AppendMessageResponse acknowledges a delivered message.
type AppendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// ListConversationsResponse is one page of the conversation list.
type ListConversationsResponse struct {
	Items []Conversation `json:"items"`
	Total int            `json:"total"`
}

// WireMessage is a message as returned by the server.
type WireMessage struct {
	ID                 string         `json:"id"`
	Role               string         `json:"role"`
	Content            string         `json:"content"`
	Images             []ImagePayload `json:"images,omitempty"`
	IsThought          bool           `json:"is_thought,omitempty"`
	ThinkingDurationMS int64          `json:"thinking_duration_ms,omitempty"`
	CreatedAt          int64          `json:"created_at"`
}

// GetMessagesResponse is one page of a conversation's messages. PageSize is
// the page size the server actually applied, which may differ from the
// requested one.
type GetMessagesResponse struct {
	Messages []WireMessage `json:"messages"`
	Total    int           `json:"total"`
	PageSize int           `json:"page_size"`
}

// UpdateTitleRequest renames a conversation.
type UpdateTitleRequest struct {
	Title string `json:"title"`
}
