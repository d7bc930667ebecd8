package syncengine

import (
	"strings"

	"github.com/mlevan/parley/src/chatmsg"
)

// maxTitleRunes is the ceiling for locally derived conversation titles.
const maxTitleRunes = 50

// DeriveTitle produces a conversation title from the first user-authored
// text part of the first message: trimmed, whitespace-collapsed and
// truncated with an ellipsis. This is a local, immediate heuristic; the
// server never overrides it.
func DeriveTitle(messages []*chatmsg.Message) string {
	for _, msg := range messages {
		if msg.Role != chatmsg.RoleUser {
			continue
		}
		for _, part := range msg.Parts {
			tp, ok := part.(chatmsg.TextPart)
			if !ok {
				continue
			}
			title := strings.Join(strings.Fields(tp.Text), " ")
			if title == "" {
				continue
			}
			runes := []rune(title)
			if len(runes) > maxTitleRunes {
				title = string(runes[:maxTitleRunes-1]) + "…"
			}
			return title
		}
	}
	return ""
}
