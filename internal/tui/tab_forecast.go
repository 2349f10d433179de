package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

func (a App) renderForecastTab(cw int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if a.forecasting {
		return components.ContentCard("Forecast", a.spinner.View()+mutedStyle.Render(" forecasting..."), cw)
	}
	if len(a.result.Points) == 0 {
		return components.ContentCard("Forecast", mutedStyle.Render("Not enough spending history to forecast."), cw)
	}

	table := components.ContentCard(fmt.Sprintf("Next %d days", len(a.result.Points)), a.renderForecastTable(cw), cw)
	if a.isCompactLayout() {
		return table + "\n" + components.ContentCard("Model", a.renderModelBody(cw), cw)
	}

	halves := components.LayoutRow(cw, 2)
	out := table + "\n" + components.CardRow([]string{
		components.ContentCard("Model", a.renderModelBody(halves[0]), halves[0]),
		components.ContentCard("Weights", a.renderWeightsBody(halves[1]), halves[1]),
	})
	if len(a.history) > 0 {
		avgs := weekdayAverages(a.history)
		chart := components.BarChart(avgs[:], weekdayLabels[:], t.Expense(), components.CardInnerWidth(cw), weekdayChartHeight)
		out += "\n" + components.ContentCard("Average Spend by Weekday", chart, cw)
	}
	return out
}

const weekdayChartHeight = 6

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// weekdayAverages returns the mean expense per weekday, Sunday first.
// Weekdays absent from history read zero.
func weekdayAverages(history []forecast.HistoryPoint) [7]float64 {
	var sum [7]float64
	var n [7]int
	for _, p := range history {
		d := p.Date.Weekday()
		sum[d] += p.Expense
		n[d]++
	}
	var out [7]float64
	for i := range out {
		if n[i] > 0 {
			out[i] = sum[i] / float64(n[i])
		}
	}
	return out
}

func (a App) renderForecastTable(cw int) string {
	t := theme.Active
	res := a.result

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	blendStyle := lipgloss.NewStyle().Foreground(t.Forecast()).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	const dateW, dayW, colW = 12, 4, 14
	innerW := components.CardInnerWidth(cw)
	barW := innerW - dateW - dayW - 3*colW - 5

	peak := 0.0
	for _, p := range res.Points {
		peak = max(peak, p.PredictedExpense)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %*s %*s %*s", dateW, "Date", dayW, "Day", colW, "Statistical", colW, "Neural", colW, "Forecast")))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")

	for i, p := range res.Points {
		neural := "-"
		if res.NeuralUsed && i < len(res.Neural) {
			neural = a.moneyFloat(res.Neural[i])
		}
		statistical := "-"
		if i < len(res.Statistical) {
			statistical = a.moneyFloat(res.Statistical[i])
		}
		b.WriteString(rowStyle.Render(fmt.Sprintf("%-*s %-*s %*s %*s ",
			dateW, p.Date.Format("2006-01-02"),
			dayW, cli.FormatDayOfWeek(int(p.Date.Weekday())),
			colW, statistical,
			colW, neural)))
		b.WriteString(blendStyle.Render(fmt.Sprintf("%*s", colW, a.moneyFloat(p.PredictedExpense))))
		if barW >= 8 && peak > 0 {
			b.WriteString(spaceStyle.Render(" "))
			b.WriteString(components.ShareBar(p.PredictedExpense/peak, barW))
		}
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	b.WriteString("\n")
	b.WriteString(rowStyle.Render(fmt.Sprintf("%-*s %*s", dateW+dayW+2*colW+3, "Total", colW, "")))
	b.WriteString(blendStyle.Render(fmt.Sprintf("%*s", colW, a.moneyFloat(a.forecastTotal()))))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("[+/-] horizon  [p] period"))
	return b.String()
}

func (a App) renderModelBody(w int) string {
	t := theme.Active
	res := a.result
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	tuning := a.cfg.Forecast.Tuning()
	blend := "statistical only"
	if res.NeuralUsed {
		blend = fmt.Sprintf("%.0f%% statistical · %.0f%% neural", tuning.StatisticalWeight*100, tuning.NeuralWeight*100)
	}
	base := "ridge regression"
	if res.Model.Base.Fallback {
		base = "mean fallback"
	}

	rows := [][2]string{
		{"Blend", blend},
		{"Base model", base},
		{"Boost stumps", fmt.Sprintf("%d (rate %.1f)", len(res.Model.Stumps), res.Model.Rate)},
		{"History days", cli.FormatNumber(int64(len(a.history)))},
		{"Average", a.moneyFloat(res.Average) + "/day"},
		{"Trend", fmt.Sprintf("%+.2f/day", res.Trend)},
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-14s", r[0])))
		b.WriteString(valueStyle.Render(r[1]))
		b.WriteString("\n")
	}
	if res.NeuralErr != nil {
		msg := truncStr("neural unavailable: "+res.NeuralErr.Error(), components.CardInnerWidth(w))
		b.WriteString(warnStyle.Render(msg))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) renderWeightsBody(w int) string {
	t := theme.Active
	m := a.result.Model
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	posStyle := lipgloss.NewStyle().Foreground(t.Income()).Background(t.Surface)
	negStyle := lipgloss.NewStyle().Foreground(t.Over()).Background(t.Surface)

	if len(m.Base.Weights) == 0 {
		return labelStyle.Render("No fitted weights")
	}

	var b strings.Builder
	for i, wt := range m.Base.Weights {
		if i >= len(forecast.FeatureNames) {
			break
		}
		style := posStyle
		if wt < 0 {
			style = negStyle
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", forecast.FeatureNames[i])))
		b.WriteString(style.Render(fmt.Sprintf("%+10.3f", wt)))
		b.WriteString("\n")
	}
	for _, s := range m.Stumps {
		if s.FeatureIndex < 0 || s.FeatureIndex >= len(forecast.FeatureNames) {
			continue
		}
		line := fmt.Sprintf("stump %s ≤ %.3f: %+.2f / %+.2f", forecast.FeatureNames[s.FeatureIndex], s.Threshold, s.LeftValue, s.RightValue)
		b.WriteString(labelStyle.Render(truncStr(line, components.CardInnerWidth(w))))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
