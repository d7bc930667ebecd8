package convstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevan/parley/src/chatmsg"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetConversation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	conv := &Conversation{Title: "tides", Model: "parley-standard"}
	require.NoError(t, conv.SetMessages([]*chatmsg.Message{
		chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: "how do tides work?"}),
	}))
	require.NoError(t, CreateConversation(ctx, db.DB(), conv))
	assert.NotEmpty(t, conv.ID)
	assert.Contains(t, conv.ID, "local-")

	got, err := GetConversation(ctx, db.DB(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "tides", got.Title)
	assert.Equal(t, 1, got.MessageCount)
	assert.Equal(t, 0, got.SyncedCount)
	assert.False(t, got.HasServerID())

	messages, err := got.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "how do tides work?", messages[0].Text())
}

func TestGetConversationNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := GetConversation(context.Background(), db.DB(), "local-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetServerIDIsMonotonic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	conv := &Conversation{}
	require.NoError(t, CreateConversation(ctx, db.DB(), conv))

	require.NoError(t, SetServerID(ctx, db.DB(), conv.ID, "srv-1"))

	// A second stamp must not overwrite the first.
	err := SetServerID(ctx, db.DB(), conv.ID, "srv-2")
	assert.ErrorIs(t, err, ErrServerIDAlreadySet)

	got, err := GetConversation(ctx, db.DB(), conv.ID)
	require.NoError(t, err)
	require.True(t, got.HasServerID())
	assert.Equal(t, "srv-1", *got.ServerID)
}

func TestSetServerIDMissingConversation(t *testing.T) {
	db := openTestDB(t)
	err := SetServerID(context.Background(), db.DB(), "local-nope", "srv-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversationsOrdering(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first := &Conversation{Title: "first"}
	require.NoError(t, CreateConversation(ctx, db.DB(), first))
	second := &Conversation{Title: "second"}
	require.NoError(t, CreateConversation(ctx, db.DB(), second))

	// Touching the first conversation moves it to the front.
	require.NoError(t, UpdateTitle(ctx, db.DB(), first.ID, "first updated"))

	metas, err := ListConversations(ctx, db.DB())
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, first.ID, metas[0].ID)
	assert.Equal(t, "first updated", metas[0].Title)

	recent, err := MostRecentlyUpdated(ctx, db.DB())
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, first.ID, recent.ID)
}

func TestMostRecentlyUpdatedEmptyCache(t *testing.T) {
	db := openTestDB(t)
	recent, err := MostRecentlyUpdated(context.Background(), db.DB())
	require.NoError(t, err)
	assert.Nil(t, recent)
}

func TestSetSyncedCount(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	conv := &Conversation{}
	require.NoError(t, CreateConversation(ctx, db.DB(), conv))
	require.NoError(t, SetSyncedCount(ctx, db.DB(), conv.ID, 3))

	got, err := GetConversation(ctx, db.DB(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SyncedCount)

	assert.ErrorIs(t, SetSyncedCount(ctx, db.DB(), "local-nope", 1), ErrNotFound)
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	conv := &Conversation{}
	require.NoError(t, CreateConversation(ctx, db.DB(), conv))
	require.NoError(t, DeleteConversation(ctx, db.DB(), conv.ID))

	_, err := GetConversation(ctx, db.DB(), conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, DeleteConversation(ctx, db.DB(), conv.ID), ErrNotFound)
}

func TestAttachmentsAreContentAddressed(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	payload := []byte("fake image bytes")

	id, err := PutAttachment(ctx, db.DB(), "image/png", payload)
	require.NoError(t, err)
	assert.Equal(t, AttachmentID(payload), id)

	// Storing the same payload twice is a no-op yielding the same id.
	again, err := PutAttachment(ctx, db.DB(), "image/png", payload)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	att, err := GetAttachment(ctx, db.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, payload, att.Data)
	assert.Equal(t, "image/png", att.MimeType)

	exists, err := HasAttachment(ctx, db.DB(), id)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, DeleteAttachment(ctx, db.DB(), id))
	_, err = GetAttachment(ctx, db.DB(), id)
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	// Deleting a missing attachment is not an error.
	assert.NoError(t, DeleteAttachment(ctx, db.DB(), id))
}

func TestClientStateLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	state, err := GetClientState(ctx, db.DB())
	require.NoError(t, err)
	assert.Empty(t, state.VisitorID)
	assert.Zero(t, state.UsageCount)

	state.VisitorID = "v-1"
	state.ActiveConversationID = "local-abc"
	state.UsageCount = 7
	require.NoError(t, SaveClientState(ctx, db.DB(), state))

	got, err := GetClientState(ctx, db.DB())
	require.NoError(t, err)
	assert.Equal(t, "v-1", got.VisitorID)
	assert.Equal(t, "local-abc", got.ActiveConversationID)
	assert.Equal(t, 7, got.UsageCount)
}

func TestRecordEndpointHistory(t *testing.T) {
	state := &ClientState{}

	state.RecordEndpoint("alpha")
	state.RecordEndpoint("beta")
	state.RecordEndpoint("alpha")

	assert.Equal(t, JSONStringArray{"alpha", "beta"}, state.EndpointHistory)

	for i := 0; i < 20; i++ {
		state.RecordEndpoint(string(rune('a' + i)))
	}
	assert.Len(t, state.EndpointHistory, 10)

	state.RecordEndpoint("")
	assert.Len(t, state.EndpointHistory, 10)
}

func TestEndpointHistoryPersists(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	state, err := GetClientState(ctx, db.DB())
	require.NoError(t, err)
	state.RecordEndpoint("https://alt.example.com")
	require.NoError(t, SaveClientState(ctx, db.DB(), state))

	got, err := GetClientState(ctx, db.DB())
	require.NoError(t, err)
	assert.Equal(t, JSONStringArray{"https://alt.example.com"}, got.EndpointHistory)
}
