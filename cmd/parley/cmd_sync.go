package main

import (
	"context"
	"fmt"

	"github.com/mlevan/parley/src/chatapi"
	"github.com/mlevan/parley/src/convstore"
	"github.com/mlevan/parley/src/theme"
)

// SyncCmd flushes pending deliveries for conversations whose cached message
// count is ahead of the server's acknowledged count
type SyncCmd struct{}

// Run executes the sync command
func (c *SyncCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Identity.CanSync() {
		return fmt.Errorf("cannot sync: %w", chatapi.ErrNoIdentity)
	}

	// The in-memory queue starts empty on each run, so re-enqueue every
	// message the server has not yet acknowledged.
	requeued, err := a.Engine.EnqueueUnsynced(ctx)
	if err != nil {
		return err
	}
	if requeued == 0 {
		fmt.Println(theme.SuccessStyle().Render("Everything is in sync."))
		return nil
	}

	fmt.Println(theme.MutedStyle().Render(fmt.Sprintf("Delivering %d message(s)...", requeued)))
	if err := a.Engine.Flush(ctx); err != nil {
		return err
	}

	if n := a.Engine.PendingCount(); n > 0 {
		fmt.Println(theme.ErrorStyle().Render(fmt.Sprintf("%d message(s) could not be delivered.", n)))
		return nil
	}

	metas, err := convstore.ListConversations(ctx, a.Store.DB())
	if err != nil {
		return err
	}
	synced := 0
	for _, meta := range metas {
		if meta.ServerID != nil && *meta.ServerID != "" {
			synced++
		}
	}
	fmt.Println(theme.SuccessStyle().Render(
		fmt.Sprintf("Done. %d of %d conversation(s) synced.", synced, len(metas))))
	return nil
}
