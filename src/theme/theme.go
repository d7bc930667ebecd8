package theme

import "github.com/charmbracelet/lipgloss"

// Colors is a color theme for CLI output
type Colors struct {
	Primary   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Error     lipgloss.Color
	Success   lipgloss.Color
}

// CurrentTheme holds the active theme colors
var CurrentTheme = Dark()

// Dark returns the dark theme
func Dark() Colors {
	return Colors{
		Primary:   lipgloss.Color("#7aa2f7"),
		Text:      lipgloss.Color("#ffffff"),
		TextMuted: lipgloss.Color("#808080"),
		Error:     lipgloss.Color("#f7768e"),
		Success:   lipgloss.Color("#9ece6a"),
	}
}

// Light returns the light theme
func Light() Colors {
	return Colors{
		Primary:   lipgloss.Color("#2959aa"),
		Text:      lipgloss.Color("#000000"),
		TextMuted: lipgloss.Color("#6a6a6a"),
		Error:     lipgloss.Color("#b3253c"),
		Success:   lipgloss.Color("#33661a"),
	}
}

// SetTheme sets the current theme by name. Unknown names keep the default.
func SetTheme(name string) {
	switch name {
	case "light":
		CurrentTheme = Light()
	case "dark":
		CurrentTheme = Dark()
	}
}

// TitleStyle renders conversation titles
func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
}

// MutedStyle renders secondary detail like timestamps and ids
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.TextMuted)
}

// ErrorStyle renders error lines
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Error)
}

// SuccessStyle renders confirmation lines
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Success)
}
