package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mlevan/parley/src/convstore"
	"github.com/mlevan/parley/src/identity"
	"github.com/mlevan/parley/src/theme"
)

// StatusCmd shows the sync identity and session state
type StatusCmd struct{}

// Run executes the status command
func (c *StatusCmd) Run(cli *CLI) error {
	ctx := context.Background()
	a, err := buildApp(ctx, cli)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := convstore.GetClientState(ctx, a.Store.DB())
	if err != nil {
		return err
	}
	metas, err := convstore.ListConversations(ctx, a.Store.DB())
	if err != nil {
		return err
	}

	unsynced := 0
	for _, meta := range metas {
		if meta.ServerID == nil || *meta.ServerID == "" {
			unsynced++
		}
	}

	fmt.Println(theme.TitleStyle().Render("parley status"))
	switch a.Identity.Kind() {
	case identity.KindSession:
		hint := state.APIKeyHint
		if hint == "" {
			hint = "(set)"
		}
		fmt.Printf("identity:       session token %s\n", theme.MutedStyle().Render(hint))
	case identity.KindVisitor:
		fmt.Printf("identity:       anonymous visitor %s\n", theme.MutedStyle().Render(a.Identity.VisitorID))
	default:
		fmt.Println("identity:       " + theme.ErrorStyle().Render("none (local-only mode)"))
	}

	fmt.Printf("conversations:  %d cached, %d not yet on the server\n", len(metas), unsynced)
	if active := a.Engine.ActiveConversationID(); active != "" {
		fmt.Printf("active:         %s\n", active)
	}
	fmt.Printf("messages sent:  %d\n", state.UsageCount)
	if len(state.EndpointHistory) > 0 {
		fmt.Printf("endpoints:      %s\n", theme.MutedStyle().Render(strings.Join(state.EndpointHistory, ", ")))
	}
	return nil
}
