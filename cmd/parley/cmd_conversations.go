package main

import (
	"context"
	"fmt"

	"github.com/mlevan/parley/src/chatapi"
	"github.com/mlevan/parley/src/config"
	"github.com/mlevan/parley/src/convstore"
	"github.com/mlevan/parley/src/theme"
)

// ConversationsCmd groups conversation management commands
type ConversationsCmd struct {
	List   ListConversationsCmd  `cmd:"" help:"List cached conversations"`
	Show   ShowConversationCmd   `cmd:"" help:"Show a conversation"`
	Switch SwitchConversationCmd `cmd:"" help:"Make a conversation active"`
	Delete DeleteConversationCmd `cmd:"" help:"Delete a conversation"`
	Export ExportConversationCmd `cmd:"" help:"Export conversations as markdown"`
	Rename RenameConversationCmd `cmd:"" help:"Rename a conversation"`
	Remote RemoteListCmd         `cmd:"" help:"List conversations on the server"`
	Pull   PullMessagesCmd       `cmd:"" help:"Show a conversation's messages from the server"`
}

// ListConversationsCmd lists cached conversations
type ListConversationsCmd struct{}

// Run executes the list command
func (c *ListConversationsCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	metas, err := convstore.ListConversations(ctx, a.Store.DB())
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println(theme.MutedStyle().Render("No conversations."))
		return nil
	}

	activeID := a.Engine.ActiveConversationID()
	for _, meta := range metas {
		marker := " "
		if meta.ID == activeID {
			marker = "*"
		}
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		synced := theme.MutedStyle().Render("local")
		if meta.ServerID != nil && *meta.ServerID != "" {
			synced = theme.SuccessStyle().Render("synced")
		}
		fmt.Printf("%s %s  %s  %s\n",
			marker,
			theme.TitleStyle().Render(title),
			theme.MutedStyle().Render(fmt.Sprintf("%s  %d msg  %s",
				meta.ID, meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04"))),
			synced,
		)
	}
	return nil
}

// ShowConversationCmd prints one conversation
type ShowConversationCmd struct {
	ID string `arg:"" help:"Local conversation id"`
}

// Run executes the show command
func (c *ShowConversationCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := convstore.GetConversation(ctx, a.Store.DB(), c.ID)
	if err != nil {
		return err
	}
	messages, err := conv.Messages()
	if err != nil {
		return err
	}

	title := conv.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Println(theme.TitleStyle().Render(title))
	fmt.Println()
	for _, msg := range messages {
		printMessage(msg)
	}
	return nil
}

// SwitchConversationCmd makes a conversation active
type SwitchConversationCmd struct {
	ID string `arg:"" help:"Local conversation id"`
}

// Run executes the switch command
func (c *SwitchConversationCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Engine.SwitchConversation(ctx, c.ID); err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle().Render("Switched to " + c.ID))
	return nil
}

// DeleteConversationCmd deletes a conversation locally and remotely
type DeleteConversationCmd struct {
	ID string `arg:"" help:"Local conversation id"`
}

// Run executes the delete command
func (c *DeleteConversationCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Engine.DeleteConversation(ctx, c.ID); err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle().Render("Deleted " + c.ID))
	return nil
}

// ExportConversationCmd writes conversations out as markdown
type ExportConversationCmd struct {
	ID  string `arg:"" optional:"" help:"Local conversation id (all when omitted)"`
	Dir string `help:"Export directory (defaults to the data directory)"`
}

// Run executes the export command
func (c *ExportConversationCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := c.Dir
	if dir == "" {
		dir = config.GetDefaultStoragePaths().ExportPath
	}

	if c.ID != "" {
		path, err := a.Exporter.ExportConversation(ctx, c.ID, dir)
		if err != nil {
			return err
		}
		fmt.Println(theme.SuccessStyle().Render("Exported to " + path))
		return nil
	}

	paths, err := a.Exporter.ExportAll(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Println(theme.SuccessStyle().Render(fmt.Sprintf("Exported %d conversation(s) to %s", len(paths), dir)))
	return nil
}

// RenameConversationCmd renames a conversation locally and, when it has been
// reconciled with the server, remotely as well
type RenameConversationCmd struct {
	ID    string `arg:"" help:"Local conversation id"`
	Title string `arg:"" help:"New title"`
}

// Run executes the rename command
func (c *RenameConversationCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := convstore.GetConversation(ctx, a.Store.DB(), c.ID)
	if err != nil {
		return err
	}
	if err := convstore.UpdateTitle(ctx, a.Store.DB(), c.ID, c.Title); err != nil {
		return err
	}
	if conv.HasServerID() && a.Identity.CanSync() {
		if err := a.Service.UpdateTitle(ctx, *conv.ServerID, c.Title); err != nil {
			a.Logger.Warn("remote title update failed", "conversation_id", c.ID, "error", err)
			fmt.Println(theme.MutedStyle().Render("Renamed locally; server update failed."))
			return nil
		}
	}
	fmt.Println(theme.SuccessStyle().Render("Renamed to " + c.Title))
	return nil
}

// RemoteListCmd pages through the server-side conversation list
type RemoteListCmd struct {
	Page     int `default:"1" help:"Page number"`
	PageSize int `default:"20" help:"Page size"`
}

// Run executes the remote list command
func (c *RemoteListCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Identity.CanSync() {
		return fmt.Errorf("no sync identity available: %w", chatapi.ErrNoIdentity)
	}

	resp, err := a.Service.ListConversations(ctx, c.Page, c.PageSize)
	if err != nil {
		return err
	}
	if len(resp.Items) == 0 {
		fmt.Println(theme.MutedStyle().Render("No conversations on the server."))
		return nil
	}

	for _, conv := range resp.Items {
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s\n",
			theme.TitleStyle().Render(title),
			theme.MutedStyle().Render(fmt.Sprintf("%s  %d msg  %s",
				conv.ID, conv.MessageCount, conv.UpdatedAt.Format("2006-01-02 15:04"))),
		)
	}
	fmt.Println(theme.MutedStyle().Render(fmt.Sprintf("Page %d, %d total", c.Page, resp.Total)))
	return nil
}

// PullMessagesCmd pages through a server conversation's messages
type PullMessagesCmd struct {
	ServerID string `arg:"" help:"Server conversation id"`
	Page     int    `default:"1" help:"Page number"`
	PageSize int    `default:"50" help:"Page size"`
}

// Run executes the pull command
func (c *PullMessagesCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Identity.CanSync() {
		return fmt.Errorf("no sync identity available: %w", chatapi.ErrNoIdentity)
	}

	resp, err := a.Service.GetMessages(ctx, c.ServerID, c.Page, c.PageSize)
	if err != nil {
		return err
	}

	for _, msg := range resp.Messages {
		label := "You"
		if msg.Role != "user" {
			label = "Assistant"
		}
		fmt.Println(theme.TitleStyle().Render(label))
		if msg.IsThought {
			fmt.Println(theme.MutedStyle().Render(indent(msg.Content)))
		} else {
			fmt.Println(indent(msg.Content))
		}
		if n := len(msg.Images); n > 0 {
			fmt.Println(theme.MutedStyle().Render(fmt.Sprintf("  [%d image(s)]", n)))
		}
		fmt.Println()
	}
	fmt.Println(theme.MutedStyle().Render(
		fmt.Sprintf("Page %d (size %d), %d total", c.Page, resp.PageSize, resp.Total)))
	return nil
}
