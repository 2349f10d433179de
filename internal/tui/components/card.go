// Package components provides reusable widgets for the spendcast dashboard.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// Tone colors a metric's delta line.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneGood
	ToneBad
)

// Metric is one headline number on a metric card.
type Metric struct {
	Label string
	Value string
	Delta string
	Tone  Tone
}

// LayoutRow distributes totalWidth into n widths that sum to exactly totalWidth.
// First items absorb the remainder from integer division.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

func toneColor(tone Tone) lipgloss.Color {
	t := theme.Active
	switch tone {
	case ToneGood:
		return t.Green
	case ToneBad:
		return t.Over()
	default:
		return t.TextDim
	}
}

// MetricCard renders a small card with label, value and an optional delta.
// outerWidth includes the border.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	contentWidth := outerWidth - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(contentWidth).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	deltaStyle := lipgloss.NewStyle().Foreground(toneColor(m.Tone)).Background(t.Surface)

	content := labelStyle.Render(m.Label) + "\n" + valueStyle.Render(m.Value)
	if m.Delta != "" {
		content += "\n" + deltaStyle.Render(m.Delta)
	}

	return cardStyle.Render(content)
}

// MetricCardRow renders metric cards side by side, summing to totalWidth.
func MetricCardRow(metrics []Metric, totalWidth int) string {
	if len(metrics) == 0 {
		return ""
	}

	widths := LayoutRow(totalWidth, len(metrics))
	rendered := make([]string, 0, len(metrics))
	for i, m := range metrics {
		rendered = append(rendered, MetricCard(m, widths[i]))
	}
	return CardRow(rendered)
}

// ContentCard renders a bordered card with an optional title.
// outerWidth includes the border.
func ContentCard(title, body string, outerWidth int) string {
	t := theme.Active

	contentWidth := outerWidth - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(contentWidth).
		Padding(0, 1)

	titleStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	content := ""
	if title != "" {
		content = titleStyle.Render(title) + "\n"
	}
	content += body

	return cardStyle.Render(content)
}

// CardRow joins rendered cards horizontally. Shorter cards are padded with
// background-colored blank lines so every row of the result is styled.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	t := theme.Active

	maxH := 0
	for _, c := range cards {
		if h := lipgloss.Height(c); h > maxH {
			maxH = h
		}
	}
	padded := make([]string, len(cards))
	for i, c := range cards {
		padded[i] = lipgloss.Place(lipgloss.Width(c), maxH, lipgloss.Left, lipgloss.Top, c,
			lipgloss.WithWhitespaceBackground(t.Background))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, padded...)
}

// CardInnerWidth returns the usable text width inside a ContentCard of the
// given outer width.
func CardInnerWidth(outerWidth int) int {
	w := outerWidth - 4
	if w < 10 {
		w = 10
	}
	return w
}
