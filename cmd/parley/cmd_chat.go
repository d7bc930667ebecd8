package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlevan/parley/src/app"
	"github.com/mlevan/parley/src/chatmsg"
	"github.com/mlevan/parley/src/convstore"
	"github.com/mlevan/parley/src/syncengine"
	"github.com/mlevan/parley/src/theme"
)

// ChatCmd groups chat session commands
type ChatCmd struct {
	Send SendCmd    `cmd:"" help:"Send a message in the active conversation"`
	New  NewChatCmd `cmd:"" help:"Start a fresh conversation"`
	Log  LogCmd     `cmd:"" help:"Show the active conversation"`
}

// SendCmd sends one message and flushes the delivery queue
type SendCmd struct {
	Message string   `arg:"" help:"Message text"`
	Image   []string `help:"Attach image files" type:"existingfile"`
	NoWait  bool     `help:"Queue the message without waiting for delivery"`
}

// Run executes the send command
func (c *SendCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	parts := []chatmsg.Part{chatmsg.TextPart{Text: c.Message}}
	for _, path := range c.Image {
		part, err := attachImage(ctx, a, path)
		if err != nil {
			return fmt.Errorf("failed to attach %s: %w", path, err)
		}
		parts = append(parts, part)
	}

	msg := chatmsg.NewMessage(chatmsg.RoleUser, parts...)
	if err := a.Engine.ProduceMessage(ctx, msg); err != nil {
		return err
	}
	if err := bumpUsage(ctx, a); err != nil {
		a.Logger.Warn("failed to record usage", "error", err)
	}

	if c.NoWait || !a.Identity.CanSync() {
		fmt.Println(theme.SuccessStyle().Render("Message saved."))
		return nil
	}

	if err := a.Engine.Flush(ctx); err != nil {
		return err
	}
	if n := a.Engine.PendingCount(); n > 0 {
		fmt.Println(theme.MutedStyle().Render(fmt.Sprintf("%d message(s) still pending.", n)))
		return nil
	}
	fmt.Println(theme.SuccessStyle().Render("Message delivered."))
	return nil
}

// NewChatCmd starts a fresh conversation
type NewChatCmd struct{}

// Run executes the new chat command
func (c *NewChatCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Engine.NewConversation()
	fmt.Println(theme.SuccessStyle().Render("Started a new conversation."))
	return nil
}

// LogCmd prints the active conversation
type LogCmd struct{}

// Run executes the log command
func (c *LogCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	messages := a.Messages.Messages()
	if len(messages) == 0 {
		fmt.Println(theme.MutedStyle().Render("No active conversation."))
		return nil
	}

	for _, msg := range messages {
		printMessage(msg)
	}
	return nil
}

func printMessage(msg *chatmsg.Message) {
	label := "You"
	if msg.Role == chatmsg.RoleModel {
		label = "Assistant"
	}
	fmt.Println(theme.TitleStyle().Render(label))

	if msg.IsThought() {
		fmt.Println(theme.MutedStyle().Render(indent(msg.ThoughtText())))
	} else if text := msg.Text(); text != "" {
		fmt.Println(indent(text))
	}
	if n := len(msg.Images()); n > 0 {
		fmt.Println(theme.MutedStyle().Render(fmt.Sprintf("  [%d image(s)]", n)))
	}
	if msg.IsError {
		fmt.Println(theme.ErrorStyle().Render("  [response ended with an error]"))
	}
	fmt.Println()
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// attachImage stores an image file in the attachment store and returns the
// split image part referencing it.
func attachImage(ctx context.Context, a *app.App, path string) (chatmsg.ImagePart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chatmsg.ImagePart{}, err
	}
	mimeType := mimeForExt(filepath.Ext(path))

	id, err := convstore.PutAttachment(ctx, a.Store.DB(), mimeType, data)
	if err != nil {
		return chatmsg.ImagePart{}, err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	preview, err := syncengine.DerivePreview(encoded)
	if err != nil {
		return chatmsg.ImagePart{}, fmt.Errorf("failed to derive preview: %w", err)
	}

	return chatmsg.ImagePart{
		MimeType:     mimeType,
		AttachmentID: id,
		Preview:      preview,
	}, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func bumpUsage(ctx context.Context, a *app.App) error {
	state, err := convstore.GetClientState(ctx, a.Store.DB())
	if err != nil {
		return err
	}
	state.UsageCount++
	return convstore.SaveClientState(ctx, a.Store.DB(), state)
}
