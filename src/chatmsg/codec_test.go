package chatmsg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCodecRoundTrip(t *testing.T) {
	original := NewMessage(RoleModel,
		ThoughtPart{Text: "considering the question"},
		TextPart{Text: "the answer is 42"},
		ImagePart{MimeType: "image/png", AttachmentID: "att_abc", Preview: "prev"},
	)
	original.ThinkingDuration = 1500 * time.Millisecond
	original.IsError = true

	data, err := MarshalMessages([]*Message{original})
	require.NoError(t, err)

	decoded, err := UnmarshalMessages(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	got := decoded[0]
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, RoleModel, got.Role)
	assert.Equal(t, original.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	assert.Equal(t, 1500*time.Millisecond, got.ThinkingDuration)
	assert.True(t, got.IsError)

	require.Len(t, got.Parts, 3)
	assert.Equal(t, ThoughtPart{Text: "considering the question"}, got.Parts[0])
	assert.Equal(t, TextPart{Text: "the answer is 42"}, got.Parts[1])
	assert.Equal(t, ImagePart{MimeType: "image/png", AttachmentID: "att_abc", Preview: "prev"}, got.Parts[2])
}

func TestUnmarshalPartsRejectsUnknownType(t *testing.T) {
	data := []byte(`[{"type":"video","data":{"url":"x"}}]`)

	_, err := UnmarshalParts(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown part type")
}

func TestUnmarshalMessagesEmptyInput(t *testing.T) {
	messages, err := UnmarshalMessages(nil)
	require.NoError(t, err)
	assert.Nil(t, messages)

	messages, err = UnmarshalMessages([]byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMarshalMessagesNilIsEmptyList(t *testing.T) {
	data, err := MarshalMessages(nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
