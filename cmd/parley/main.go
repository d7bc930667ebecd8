package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	SessionToken string `env:"PARLEY_SESSION_TOKEN" help:"Session token for authenticated sync"`
	BaseURL      string `help:"Custom API base URL"`
	Model        string `help:"Model for new conversations"`
	Endpoint     string `help:"Custom endpoint hint for new conversations"`
	LogLevel     string `default:"warn" help:"Log level"`
	DBPath       string `help:"Conversation cache path (defaults to config)"`

	Chat          ChatCmd          `cmd:"" help:"Send messages in the active conversation"`
	Conversations ConversationsCmd `cmd:"" help:"Manage cached conversations"`
	Sync          SyncCmd          `cmd:"" help:"Flush pending message deliveries"`
	Migrate       MigrateCmd       `cmd:"" help:"Database migrations"`
	Status        StatusCmd        `cmd:"" help:"Show sync identity and session state"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("parley"),
		kong.Description("Chat client with offline-first conversation sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
