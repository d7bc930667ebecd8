package syncengine

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevan/parley/src/chatmsg"
	"github.com/mlevan/parley/src/convstore"
)

// pngPayload encodes a small solid image and returns it base64 encoded.
func pngPayload(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func seedConversation(t *testing.T, db *convstore.DB, messages []*chatmsg.Message) string {
	t.Helper()
	conv := &convstore.Conversation{Title: "seeded"}
	require.NoError(t, conv.SetMessages(messages))
	require.NoError(t, convstore.CreateConversation(context.Background(), db.DB(), conv))
	return conv.ID
}

func imagePartsOf(t *testing.T, db *convstore.DB, id string) []chatmsg.ImagePart {
	t.Helper()
	conv, err := convstore.GetConversation(context.Background(), db.DB(), id)
	require.NoError(t, err)
	messages, err := conv.Messages()
	require.NoError(t, err)
	var parts []chatmsg.ImagePart
	for _, msg := range messages {
		parts = append(parts, msg.Images()...)
	}
	return parts
}

func TestRehydrateSplitsDualRecords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)
	payload := pngPayload(t)

	id := seedConversation(t, env.db, []*chatmsg.Message{
		chatmsg.NewMessage(chatmsg.RoleUser,
			chatmsg.TextPart{Text: "look at this"},
			chatmsg.ImagePart{Data: payload, Preview: "existing-preview", MimeType: "image/png"},
		),
	})

	require.NoError(t, env.engine.Rehydrate(ctx))

	parts := imagePartsOf(t, env.db, id)
	require.Len(t, parts, 1)
	assert.Empty(t, parts[0].Data)
	assert.NotEmpty(t, parts[0].AttachmentID)
	assert.Equal(t, "existing-preview", parts[0].Preview)

	att, err := convstore.GetAttachment(ctx, env.db.DB(), parts[0].AttachmentID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MimeType)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	assert.Equal(t, decoded, att.Data)
}

func TestRehydrateMigratesLegacyRecords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)
	payload := pngPayload(t)

	id := seedConversation(t, env.db, []*chatmsg.Message{
		chatmsg.NewMessage(chatmsg.RoleUser,
			chatmsg.ImagePart{Data: payload, MimeType: "image/png"},
		),
	})

	require.NoError(t, env.engine.Rehydrate(ctx))

	parts := imagePartsOf(t, env.db, id)
	require.Len(t, parts, 1)
	assert.Empty(t, parts[0].Data)
	assert.NotEmpty(t, parts[0].AttachmentID)
	assert.NotEmpty(t, parts[0].Preview, "legacy records get a derived preview")
}

func TestRehydrateDropsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)

	id := seedConversation(t, env.db, []*chatmsg.Message{
		chatmsg.NewMessage(chatmsg.RoleUser,
			chatmsg.TextPart{Text: "text survives"},
			chatmsg.ImagePart{MimeType: "image/png"}, // no payload, no reference
		),
	})

	require.NoError(t, env.engine.Rehydrate(ctx))

	assert.Empty(t, imagePartsOf(t, env.db, id))

	conv, err := convstore.GetConversation(ctx, env.db.DB(), id)
	require.NoError(t, err)
	messages, err := conv.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "text survives", messages[0].Text())
}

func TestRehydrateDropsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)

	id := seedConversation(t, env.db, []*chatmsg.Message{
		chatmsg.NewMessage(chatmsg.RoleUser,
			chatmsg.ImagePart{AttachmentID: "att_missing", Preview: "p", MimeType: "image/png"},
		),
	})

	require.NoError(t, env.engine.Rehydrate(ctx))

	assert.Empty(t, imagePartsOf(t, env.db, id))
}

func TestRehydrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)
	payload := pngPayload(t)

	id := seedConversation(t, env.db, []*chatmsg.Message{
		chatmsg.NewMessage(chatmsg.RoleUser,
			chatmsg.ImagePart{Data: payload, MimeType: "image/png"},
		),
	})

	require.NoError(t, env.engine.Rehydrate(ctx))
	first := imagePartsOf(t, env.db, id)
	require.Len(t, first, 1)

	require.NoError(t, env.engine.Rehydrate(ctx))
	second := imagePartsOf(t, env.db, id)
	require.Len(t, second, 1)
	assert.Equal(t, first[0], second[0])
}

func TestRehydrateRestoresTrackedActiveConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)

	olderID := seedConversation(t, env.db, []*chatmsg.Message{userMsg("older")})
	seedConversation(t, env.db, []*chatmsg.Message{userMsg("newer")})

	state, err := convstore.GetClientState(ctx, env.db.DB())
	require.NoError(t, err)
	state.ActiveConversationID = olderID
	require.NoError(t, convstore.SaveClientState(ctx, env.db.DB(), state))

	require.NoError(t, env.engine.Rehydrate(ctx))

	assert.Equal(t, olderID, env.engine.ActiveConversationID())
	require.Equal(t, 1, env.engine.Store().Len())
	assert.Equal(t, "older", env.engine.Store().Last().Text())
}

func TestRehydrateFallsBackToMostRecent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeService{}, false)

	seedConversation(t, env.db, []*chatmsg.Message{userMsg("older")})
	newerID := seedConversation(t, env.db, []*chatmsg.Message{userMsg("newer")})

	require.NoError(t, env.engine.Rehydrate(ctx))

	assert.Equal(t, newerID, env.engine.ActiveConversationID())
	assert.Equal(t, "newer", env.engine.Store().Last().Text())
}

func TestRehydrateEmptyCacheLeavesNoActiveConversation(t *testing.T) {
	env := newTestEnv(t, &fakeService{}, false)

	require.NoError(t, env.engine.Rehydrate(context.Background()))

	assert.Empty(t, env.engine.ActiveConversationID())
	assert.Equal(t, 0, env.engine.Store().Len())
}
