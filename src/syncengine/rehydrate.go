package syncengine

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/mlevan/parley/src/chatmsg"
	"github.com/mlevan/parley/src/convstore"
)

// Rehydrate restores session state on startup: it migrates legacy attachment
// records across all cached conversations, then loads the active conversation
// (the explicitly tracked one, falling back to the most recently updated)
// into the message store. Safe to run on every startup; a fully migrated
// cache makes it a read-only pass.
func (e *Engine) Rehydrate(ctx context.Context) error {
	if err := e.migrateAttachments(ctx); err != nil {
		return err
	}
	return e.restoreActiveConversation(ctx)
}

func (e *Engine) restoreActiveConversation(ctx context.Context) error {
	state, err := convstore.GetClientState(ctx, e.db.DB())
	if err != nil {
		return err
	}

	var conv *convstore.Conversation
	if state.ActiveConversationID != "" {
		conv, err = convstore.GetConversation(ctx, e.db.DB(), state.ActiveConversationID)
		if err != nil && !errors.Is(err, convstore.ErrNotFound) {
			return err
		}
	}
	if conv == nil {
		conv, err = convstore.MostRecentlyUpdated(ctx, e.db.DB())
		if err != nil {
			return err
		}
	}
	if conv == nil {
		// Fresh cache; the first produced message creates a conversation.
		return nil
	}

	messages, err := conv.Messages()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.activeID = conv.ID
	e.mu.Unlock()
	e.store.Reset(messages)

	if state.ActiveConversationID != conv.ID {
		if err := e.saveActivePointer(ctx, conv.ID); err != nil {
			e.logger.Warn("failed to persist active conversation pointer", "error", err)
		}
	}
	e.logger.Debug("restored active conversation",
		"conversation_id", conv.ID, "messages", len(messages))
	return nil
}

// migrateAttachments walks every cached conversation and normalizes its image
// parts to the attachment-id-plus-preview form. Three record shapes exist in
// the wild:
//
//   - dual: inline payload and preview both present, from sessions written
//     before the payload was split into the blob store
//   - legacy: inline payload only, from the oldest sessions
//   - corrupt: neither payload nor a resolvable attachment id
//
// Dual and legacy records move their payload into the blob store (deriving a
// preview for legacy ones); corrupt records are dropped along with any
// dangling attachment reference. Content-addressed blob ids keep the pass
// idempotent when a previous run was interrupted mid-conversation.
func (e *Engine) migrateAttachments(ctx context.Context) error {
	metas, err := convstore.ListConversations(ctx, e.db.DB())
	if err != nil {
		return err
	}

	migrated, dropped := 0, 0
	for _, meta := range metas {
		conv, err := convstore.GetConversation(ctx, e.db.DB(), meta.ID)
		if err != nil {
			if errors.Is(err, convstore.ErrNotFound) {
				continue
			}
			return err
		}
		messages, err := conv.Messages()
		if err != nil {
			e.logger.Warn("skipping conversation with undecodable messages",
				"conversation_id", conv.ID, "error", err)
			continue
		}

		changed := false
		for _, msg := range messages {
			msgChanged := false
			for i, part := range msg.Parts {
				img, ok := part.(chatmsg.ImagePart)
				if !ok {
					continue
				}
				out, action, err := e.migrateImagePart(ctx, img)
				if err != nil {
					return err
				}
				switch action {
				case migrateNone:
				case migrateSplit:
					msg.Parts[i] = out
					migrated++
					msgChanged = true
				case migrateDrop:
					msg.Parts[i] = nil
					dropped++
					msgChanged = true
				}
			}
			if msgChanged {
				msg.Parts = compactParts(msg.Parts)
				changed = true
			}
		}

		if changed {
			if err := conv.SetMessages(messages); err != nil {
				return err
			}
			if err := convstore.SaveConversation(ctx, e.db.DB(), conv); err != nil {
				return err
			}
		}
	}

	if migrated > 0 || dropped > 0 {
		e.logger.Info("attachment migration complete",
			"migrated", migrated, "dropped", dropped)
	}
	return nil
}

type migrateAction int

const (
	migrateNone migrateAction = iota
	migrateSplit
	migrateDrop
)

// migrateImagePart normalizes one image part. Parts that already carry an
// attachment id and preview pass through untouched.
func (e *Engine) migrateImagePart(ctx context.Context, img chatmsg.ImagePart) (chatmsg.ImagePart, migrateAction, error) {
	if img.Data != "" {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			// Payload is not valid base64; nothing to salvage.
			e.logger.Warn("dropping image part with undecodable payload", "error", err)
			return img, migrateDrop, nil
		}
		id, err := convstore.PutAttachment(ctx, e.db.DB(), img.MimeType, raw)
		if err != nil {
			return img, migrateNone, err
		}
		if img.Preview == "" {
			preview, err := DerivePreview(img.Data)
			if err != nil {
				e.logger.Warn("failed to derive preview, keeping payload reference",
					"attachment_id", id, "error", err)
			} else {
				img.Preview = preview
			}
		}
		img.AttachmentID = id
		img.Data = ""
		return img, migrateSplit, nil
	}

	if img.AttachmentID == "" {
		// Neither payload nor reference; the record is unrecoverable.
		return img, migrateDrop, nil
	}

	exists, err := convstore.HasAttachment(ctx, e.db.DB(), img.AttachmentID)
	if err != nil {
		return img, migrateNone, err
	}
	if !exists {
		e.logger.Warn("dropping image part with dangling attachment reference",
			"attachment_id", img.AttachmentID)
		if err := convstore.DeleteAttachment(ctx, e.db.DB(), img.AttachmentID); err != nil {
			return img, migrateNone, err
		}
		return img, migrateDrop, nil
	}

	if img.Preview == "" {
		att, err := convstore.GetAttachment(ctx, e.db.DB(), img.AttachmentID)
		if err != nil {
			return img, migrateNone, err
		}
		preview, err := DerivePreview(base64.StdEncoding.EncodeToString(att.Data))
		if err != nil {
			e.logger.Warn("failed to derive preview for stored attachment",
				"attachment_id", img.AttachmentID, "error", err)
			return img, migrateNone, nil
		}
		img.Preview = preview
		return img, migrateSplit, nil
	}
	return img, migrateNone, nil
}

func compactParts(parts []chatmsg.Part) []chatmsg.Part {
	out := parts[:0]
	for _, p := range parts {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
