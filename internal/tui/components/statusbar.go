package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports about the loaded data.
type StatusInfo struct {
	DataAge     string
	Model       string // "neural", "statistical" or "" before the first forecast
	Refreshing  bool
	AutoRefresh bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")

	var right []string
	if info.Model != "" {
		right = append(right, dim.Render("model ")+accent.Render(info.Model))
	}
	switch {
	case info.Refreshing:
		right = append(right, accent.Render("refreshing…"))
	case info.AutoRefresh:
		right = append(right, dim.Render("auto"))
	}
	if info.DataAge != "" {
		right = append(right, base.Render("data "+info.DataAge))
	}
	r := strings.Join(right, dim.Render("  ")) + base.Render(" ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 0 {
		gap = 0
	}
	return left + base.Render(strings.Repeat(" ", gap)) + r
}
