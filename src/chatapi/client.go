package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://api.parley.chat/v1"
	defaultTimeout = 30 * time.Second
)

var _ Service = (*Client)(nil)

// Service is the remote conversation service contract. The sync engine and
// the CLI depend on this interface; tests substitute a fake.
type Service interface {
	CreateConversation(ctx context.Context, req *CreateConversationRequest) (*CreateConversationResponse, error)
	AppendMessage(ctx context.Context, conversationID string, req *AppendMessageRequest) (*AppendMessageResponse, error)
	ListConversations(ctx context.Context, page, pageSize int) (*ListConversationsResponse, error)
	GetMessages(ctx context.Context, conversationID string, page, pageSize int) (*GetMessagesResponse, error)
	UpdateTitle(ctx context.Context, conversationID, title string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

// Client is the HTTP client for the conversation service.
//
// The client performs no retries of its own: message delivery is retried by
// the pending sync queue with its own backoff schedule, and doubling up here
// would distort the queue's attempt accounting.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new conversation service client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "chatapi_client")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// CreateConversation creates a conversation and returns its server id.
// The caller guarantees at most one call per local conversation; the service
// does not promise idempotency.
func (c *Client) CreateConversation(ctx context.Context, req *CreateConversationRequest) (*CreateConversationResponse, error) {
	logger := c.logger.With("method", "CreateConversation", "model", req.Model)
	logger.Debug("creating conversation")

	var result CreateConversationResponse
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", req, &result); err != nil {
		logger.Warn("conversation creation failed", "error", err)
		return nil, err
	}
	if result.ID == "" {
		return nil, ErrEmptyResponse
	}

	logger.Info("conversation created", "conversation_id", result.ID)
	return &result, nil
}

// AppendMessage appends one message to a conversation. Delivery is
// at-least-once: the sync queue retries until acknowledged or exhausted.
func (c *Client) AppendMessage(ctx context.Context, conversationID string, req *AppendMessageRequest) (*AppendMessageResponse, error) {
	logger := c.logger.With("method", "AppendMessage", "conversation_id", conversationID)
	logger.Debug("appending message", "role", req.Role, "images", len(req.Images), "is_thought", req.IsThought)

	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	var result AppendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &result); err != nil {
		logger.Warn("message append failed", "error", err)
		return nil, err
	}
	return &result, nil
}

// ListConversations returns one page of the user's conversations.
func (c *Client) ListConversations(ctx context.Context, page, pageSize int) (*ListConversationsResponse, error) {
	path := fmt.Sprintf("/conversations?page=%d&page_size=%d", page, pageSize)
	var result ListConversationsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessages returns one page of a conversation's messages.
func (c *Client) GetMessages(ctx context.Context, conversationID string, page, pageSize int) (*GetMessagesResponse, error) {
	path := "/conversations/" + url.PathEscape(conversationID) +
		"/messages?page=" + strconv.Itoa(page) + "&page_size=" + strconv.Itoa(pageSize)
	var result GetMessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateTitle renames a conversation on the server.
func (c *Client) UpdateTitle(ctx context.Context, conversationID, title string) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/title"
	return c.doJSON(ctx, http.MethodPut, path, &UpdateTitleRequest{Title: title}, nil)
}

// DeleteConversation removes a conversation from the server.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/conversations/" + url.PathEscape(conversationID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// newRequest creates a new HTTP request with identity headers attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.config.SessionToken != "":
		req.Header.Set("Authorization", "Bearer "+c.config.SessionToken)
	case c.config.VisitorID != "":
		req.Header.Set("X-Visitor-ID", c.config.VisitorID)
	default:
		return nil, ErrNoIdentity
	}

	return req, nil
}

// doJSON performs a request with an optional JSON body, decoding a JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    errResp.Error.Message,
		Code:       errResp.Error.Code,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
}
