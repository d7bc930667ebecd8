package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsSessionToken(t *testing.T) {
	var gotAuth, gotVisitor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVisitor = r.Header.Get("X-Visitor-ID")
		json.NewEncoder(w).Encode(CreateConversationResponse{ID: "srv-1"})
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:      srv.URL,
		SessionToken: "tok-123",
		VisitorID:    "visitor-should-lose",
	})

	resp, err := client.CreateConversation(context.Background(), &CreateConversationRequest{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", resp.ID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Empty(t, gotVisitor, "session token takes precedence over visitor id")
}

func TestClientSendsVisitorID(t *testing.T) {
	var gotVisitor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVisitor = r.Header.Get("X-Visitor-ID")
		json.NewEncoder(w).Encode(CreateConversationResponse{ID: "srv-2"})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, VisitorID: "v-42"})

	_, err := client.CreateConversation(context.Background(), &CreateConversationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "v-42", gotVisitor)
}

func TestClientRequiresIdentity(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:0"})

	_, err := client.CreateConversation(context.Background(), &CreateConversationRequest{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestClientAppendMessage(t *testing.T) {
	var gotPath string
	var gotReq AppendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(AppendMessageResponse{MessageID: "m-1"})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SessionToken: "tok"})

	resp, err := client.AppendMessage(context.Background(), "srv-9", &AppendMessageRequest{
		Role:    "user",
		Content: "hello",
		Images:  []ImagePayload{{Data: "aGk=", MimeType: "image/png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "m-1", resp.MessageID)
	assert.Equal(t, "/conversations/srv-9/messages", gotPath)
	assert.Equal(t, "hello", gotReq.Content)
	require.Len(t, gotReq.Images, 1)
	assert.Equal(t, "image/png", gotReq.Images[0].MimeType)
}

func TestClientParsesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-7")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: APIError{Message: "slow down", Code: "rate_limited"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SessionToken: "tok"})

	_, err := client.CreateConversation(context.Background(), &CreateConversationRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.Equal(t, "req-7", apiErr.RequestID)
	assert.True(t, apiErr.IsTransient())
}

func TestClientHandlesNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SessionToken: "tok"})

	err := client.UpdateTitle(context.Background(), "srv-1", "new title")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClientEmptyCreateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CreateConversationResponse{})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SessionToken: "tok"})

	_, err := client.CreateConversation(context.Background(), &CreateConversationRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClientPaginationParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(GetMessagesResponse{Total: 120, PageSize: 50})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SessionToken: "tok"})

	resp, err := client.GetMessages(context.Background(), "srv-1", 3, 50)
	require.NoError(t, err)
	assert.Equal(t, "page=3&page_size=50", gotQuery)
	assert.Equal(t, 120, resp.Total)
	assert.Equal(t, 50, resp.PageSize)
}
