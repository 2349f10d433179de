package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// ProgressBar renders a block progress bar followed by its percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var barColor lipgloss.Color
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	default:
		barColor = t.Cyan
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// ColorForPct maps budget utilization (0..1+) to green, yellow, orange or red.
func ColorForPct(pct float64) string {
	t := theme.Active
	switch {
	case pct >= 1:
		return string(t.Over())
	case pct >= 0.85:
		return string(t.Orange)
	case pct >= 0.6:
		return string(t.Yellow)
	default:
		return string(t.Green)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BudgetBar renders a labeled utilization bar. pct is the share of the
// budget used and may exceed 1; the bar saturates but the number does not.
// note is printed dimmed after the percentage.
func BudgetBar(label string, pct float64, note string, labelW, barWidth int) string {
	t := theme.Active
	color := ColorForPct(pct)

	bar := progress.New(
		progress.WithSolidFill(color),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Background(t.Surface).Bold(true)
	noteStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	out := labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(clamp01(pct)) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%4.0f%%", pct*100))
	if note != "" {
		out += spaceStyle.Render("  ") + noteStyle.Render(note)
	}
	return out
}

// ShareBar renders a compact accent-colored bar for a 0..1 share.
func ShareBar(share float64, width int) string {
	t := theme.Active
	if width < 4 {
		width = 4
	}
	bar := progress.New(
		progress.WithSolidFill(string(t.Accent)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.SurfaceBright)
	return bar.ViewAs(clamp01(share))
}
