package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 4) // UTF-8 block chars are up to 3 bytes
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		buf.WriteRune(blocks[idx]) //nolint:gosec // bounds checked above
	}

	return style.Render(buf.String())
}

// BarChart renders a single-color bar chart with a labeled Y axis.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	return renderBars(values, labels, len(values), color, color, width, height)
}

// ForecastChart renders history bars followed by forecast bars in a second
// color on a shared axis. labels covers both series, history first.
func ForecastChart(history, forecast []float64, labels []string, width, height int) string {
	t := theme.Active
	values := make([]float64, 0, len(history)+len(forecast))
	values = append(values, history...)
	values = append(values, forecast...)
	return renderBars(values, labels, len(history), t.Accent, t.Forecast(), width, height)
}

// renderBars draws values as vertical bars. Bars at index >= split use
// splitColor.
func renderBars(values []float64, labels []string, split int, color, splitColor lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	tickStep := chartTickStep(maxVal)
	maxIntervals := height / 2
	if maxIntervals < 2 {
		maxIntervals = 2
	}
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := int(math.Round(ceiling / tickStep))
	if numIntervals < 1 {
		numIntervals = 1
	}

	rowsPerTick := height / numIntervals
	if rowsPerTick < 2 {
		rowsPerTick = 2
	}
	chartH := rowsPerTick * numIntervals

	yLabelW := len(formatChartLabel(ceiling)) + 1
	if yLabelW < 4 {
		yLabelW = 4
	}
	tickLabels := make(map[int]string)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := width - yLabelW - 1
	if chartW < 5 {
		chartW = 5
	}

	n := len(values)
	gap := 1
	if n <= 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	if barW < 2 && n > 1 {
		// Too many bars: keep every k-th one, mapping the split along.
		maxN := (chartW + 1) / 3
		if maxN < 2 {
			maxN = 2
		}
		sampled := make([]float64, maxN)
		var sampledLabels []string
		if len(labels) == n {
			sampledLabels = make([]string, maxN)
		}
		newSplit := maxN
		for i := range sampled {
			srcIdx := i * (n - 1) / (maxN - 1)
			sampled[i] = values[srcIdx]
			if sampledLabels != nil {
				sampledLabels[i] = labels[srcIdx]
			}
			if srcIdx >= split && i < newSplit {
				newSplit = i
			}
		}
		values, labels, split, n = sampled, sampledLabels, newSplit, maxN
		barW = 2
	}
	if barW > 6 {
		barW = 6
	}
	axisLen := n*barW + max(0, n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)
	barStyles := [2]lipgloss.Style{
		lipgloss.NewStyle().Foreground(color).Background(t.Surface),
		lipgloss.NewStyle().Foreground(splitColor).Background(t.Surface),
	}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blankStyle.Render(strings.Repeat(" ", gap)))
			}
			style := barStyles[0]
			if i >= split {
				style = barStyles[1]
			}
			switch {
			case v >= rowTop:
				b.WriteString(style.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(style.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(blankStyle.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└"))
	b.WriteString(axisStyle.Render(strings.Repeat("─", axisLen)))

	if len(labels) == n && n > 0 {
		b.WriteString("\n")
		b.WriteString(blankStyle.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(strings.TrimRight(placeLabels(labels, barW, gap, axisLen), " ")))
	}

	return b.String()
}

// placeLabels lays x-axis labels under their bars, skipping any that would
// collide. The last label is always shown when it fits.
func placeLabels(labels []string, barW, gap, axisLen int) string {
	n := len(labels)
	buf := []byte(strings.Repeat(" ", axisLen))

	labelStep := max(1, (n*8)/(axisLen+1))
	lastEnd := -1
	for i := 0; i < n; i += labelStep {
		pos := i * (barW + gap)
		lbl := labels[i]
		end := pos + len(lbl)
		if pos <= lastEnd {
			continue
		}
		if end > axisLen {
			end = axisLen
			if end-pos < 3 {
				continue
			}
			lbl = lbl[:end-pos]
		}
		copy(buf[pos:end], lbl)
		lastEnd = end + 1
	}
	if n > 1 {
		lbl := labels[n-1]
		pos := (n - 1) * (barW + gap)
		end := pos + len(lbl)
		if end > axisLen {
			pos = axisLen - len(lbl)
			end = axisLen
		}
		if pos >= 0 && pos > lastEnd {
			copy(buf[pos:end], lbl)
		}
	}
	return string(buf)
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	switch {
	case v >= 1e9:
		if v == math.Trunc(v/1e9)*1e9 {
			return fmt.Sprintf("%.0fB", v/1e9)
		}
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		if v == math.Trunc(v/1e6)*1e6 {
			return fmt.Sprintf("%.0fM", v/1e6)
		}
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		if v == math.Trunc(v/1e3)*1e3 {
			return fmt.Sprintf("%.0fk", v/1e3)
		}
		return fmt.Sprintf("%.1fk", v/1e3)
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
