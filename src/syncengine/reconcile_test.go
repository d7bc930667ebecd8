package syncengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlevan/parley/src/chatmsg"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		messages []*chatmsg.Message
		want     string
	}{
		{
			name: "simple text",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: "How do tides work?"}),
			},
			want: "How do tides work?",
		},
		{
			name: "collapses whitespace",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: "  hello\n\n  world  "}),
			},
			want: "hello world",
		},
		{
			name: "truncates long titles with ellipsis",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: strings.Repeat("a", 80)}),
			},
			want: strings.Repeat("a", 49) + "…",
		},
		{
			name: "exactly at the limit is untouched",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: strings.Repeat("b", 50)}),
			},
			want: strings.Repeat("b", 50),
		},
		{
			name: "skips model messages",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleModel, chatmsg.TextPart{Text: "assistant text"}),
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: "user text"}),
			},
			want: "user text",
		},
		{
			name: "skips image-only user message",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.ImagePart{MimeType: "image/png", AttachmentID: "att_x"}),
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: "what is this?"}),
			},
			want: "what is this?",
		},
		{
			name:     "no messages",
			messages: nil,
			want:     "",
		},
		{
			name: "multibyte runes count as one",
			messages: []*chatmsg.Message{
				chatmsg.NewMessage(chatmsg.RoleUser, chatmsg.TextPart{Text: strings.Repeat("ü", 60)}),
			},
			want: strings.Repeat("ü", 49) + "…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.messages))
		})
	}
}
