package chatapi

import (
	"log/slog"
	"time"
)

// Config holds configuration for the conversation service client
type Config struct {
	BaseURL      string        // Base URL for the conversation service API
	SessionToken string        // Authenticated session token, if any
	VisitorID    string        // Anonymous visitor identifier, if any
	Logger       *slog.Logger  // Logger for debugging
	Timeout      time.Duration // HTTP timeout
}
