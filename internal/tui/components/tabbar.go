package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// Tab is one entry in the dashboard tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // index of the shortcut letter in Name, -1 when absent
}

// Tabs lists the dashboard tabs in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Forecast", Key: 'f', KeyPos: 0},
	{Name: "Transactions", Key: 't', KeyPos: 0},
	{Name: "Categories", Key: 'c', KeyPos: 0},
	{Name: "Settings", Key: 'x', KeyPos: -1},
}

const tabPadding = 1

// TabVisualWidth is the rendered column width of a tab, used for mouse
// hit-testing. It must agree with RenderTabBar.
func TabVisualWidth(tab Tab, active bool) int {
	w := lipgloss.Width(tab.Name) + 2*tabPadding
	if !active && tab.KeyPos < 0 {
		w += 3
	}
	return w
}

// RenderTabBar renders a single-row tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, tabPadding)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	padStyle := lipgloss.NewStyle().Background(t.Surface)
	pad := padStyle.Render(strings.Repeat(" ", tabPadding))

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}
		var body string
		if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
			body = inactiveStyle.Render(tab.Name[:tab.KeyPos]) +
				keyStyle.Render(string(tab.Name[tab.KeyPos])) +
				inactiveStyle.Render(tab.Name[tab.KeyPos+1:])
		} else {
			body = inactiveStyle.Render(tab.Name) +
				dimStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimStyle.Render("]")
		}
		parts = append(parts, pad+body+pad)
	}

	row := strings.Join(parts, padStyle.Render(" "))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabIdxByKey returns the tab index for a shortcut key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
