package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/cli"
	"github.com/theirongolddev/spendcast/internal/tui/components"
	"github.com/theirongolddev/spendcast/internal/tui/theme"
)

// overviewChartDays caps how much history the overview chart shows so
// forecast bars stay readable.
const overviewChartDays = 45

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	var b strings.Builder

	if a.loadErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		b.WriteString(components.ContentCard("", warn.Render("Ledger error: "+a.loadErr.Error()), cw))
		b.WriteString("\n")
	}

	b.WriteString(components.MetricCardRow(a.overviewMetrics(), cw))
	b.WriteString("\n")

	chartBody := a.renderForecastChart(components.CardInnerWidth(cw), 10)
	b.WriteString(components.ContentCard(fmt.Sprintf("Daily Spend · next %dd forecast", a.horizon), chartBody, cw))
	b.WriteString("\n")

	top := a.renderTopCategories(5)
	if a.hasBudget {
		if a.isCompactLayout() {
			b.WriteString(components.ContentCard("Budget", a.renderBudgetBody(cw), cw))
			b.WriteString("\n")
			b.WriteString(components.ContentCard("Top Categories", top, cw))
		} else {
			halves := components.LayoutRow(cw, 2)
			b.WriteString(components.CardRow([]string{
				components.ContentCard("Budget", a.renderBudgetBody(halves[0]), halves[0]),
				components.ContentCard("Top Categories", top, halves[1]),
			}))
		}
	} else {
		b.WriteString(components.ContentCard("Top Categories", top, cw))
	}
	return b.String()
}

func (a App) overviewMetrics() []components.Metric {
	stats, prev := a.stats, a.prevStats

	spent := components.Metric{Label: "Spent", Value: a.money(stats.Expense)}
	if prev.Transactions > 0 {
		spent.Delta = cli.FormatDelta(stats.Expense, prev.Expense, a.currency()) + " vs prior"
		switch stats.Expense.Cmp(prev.Expense) {
		case 1:
			spent.Tone = components.ToneBad
		case -1:
			spent.Tone = components.ToneGood
		}
	} else {
		spent.Delta = a.money(stats.ExpensePerDay) + "/day"
	}

	net := components.Metric{Label: "Net", Value: a.money(stats.Net)}
	switch {
	case stats.Net.IsNegative():
		net.Tone = components.ToneBad
		net.Delta = "spending exceeds income"
	case stats.Net.IsPositive():
		net.Tone = components.ToneGood
		net.Delta = fmt.Sprintf("%d transactions", stats.Transactions)
	default:
		net.Delta = fmt.Sprintf("%d transactions", stats.Transactions)
	}

	next := components.Metric{Label: fmt.Sprintf("Next %dd", a.horizon), Value: "…"}
	if !a.forecasting {
		total := a.forecastTotal()
		next.Value = a.moneyFloat(total)
		switch {
		case len(a.result.Points) == 0:
			next.Value = "-"
			next.Delta = "no spending history"
		default:
			next.Delta = fmt.Sprintf("%s/day · %s", a.moneyFloat(total/float64(len(a.result.Points))), modelLabel(a.result))
			if perDay := stats.ExpensePerDay.InexactFloat64(); perDay > 0 && total/float64(len(a.result.Points)) > perDay*1.1 {
				next.Tone = components.ToneBad
			}
		}
	}

	return []components.Metric{
		spent,
		{Label: "Income", Value: a.money(stats.Income), Delta: fmt.Sprintf("%d active days", stats.ActiveDays)},
		net,
		next,
	}
}

func (a App) forecastTotal() float64 {
	var sum float64
	for _, p := range a.result.Points {
		sum += p.PredictedExpense
	}
	return sum
}

// renderForecastChart draws recent daily spend followed by the forecast.
func (a App) renderForecastChart(w, h int) string {
	t := theme.Active
	days := a.days
	if len(days) > overviewChartDays {
		days = days[len(days)-overviewChartDays:]
	}
	if len(days) == 0 && len(a.result.Points) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No spending recorded yet")
	}

	hist := make([]float64, len(days))
	dates := make([]time.Time, 0, len(days)+len(a.result.Points))
	for i, d := range days {
		hist[i] = d.Expense.InexactFloat64()
		dates = append(dates, d.Date)
	}
	var fc []float64
	if !a.forecasting {
		fc = make([]float64, len(a.result.Points))
		for i, p := range a.result.Points {
			fc[i] = p.PredictedExpense
			dates = append(dates, p.Date)
		}
	}

	legend := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render("█ actual") +
		lipgloss.NewStyle().Background(t.Surface).Render("  ") +
		lipgloss.NewStyle().Foreground(t.Forecast()).Background(t.Surface).Render("█ forecast")

	return components.ForecastChart(hist, fc, chartDateLabels(dates), w, h) + "\n" + legend
}

func (a App) renderBudgetBody(w int) string {
	t := theme.Active
	bs := a.budget
	innerW := components.CardInnerWidth(w)
	barW := max(innerW-32, 10)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	monthly := decimal.Zero
	if bs.MonthlyBudget != nil {
		monthly = *bs.MonthlyBudget
	}

	var b strings.Builder
	b.WriteString(components.BudgetBar("Used", bs.BudgetUsedPercent/100, a.money(bs.CurrentSpend), 9, barW))
	b.WriteString("\n")
	b.WriteString(components.BudgetBar("Projected", bs.ProjectedPercent/100, a.money(bs.ProjectedMonthly), 9, barW))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Budget", a.money(monthly) + "/month"},
		{"Burn rate", a.money(bs.DailyBurnRate) + "/day"},
		{"Forecast", a.money(bs.ForecastSpend)},
		{"Days left", fmt.Sprintf("%d", bs.DaysRemaining)},
	}
	for _, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-11s", r[0])))
		b.WriteString(valueStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) renderTopCategories(n int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	nameStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)
	amountStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	if len(a.expenseCats) == 0 {
		return mutedStyle.Render("No expenses in this period")
	}

	var b strings.Builder
	for i, c := range a.expenseCats {
		if i >= n {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("+%d more", len(a.expenseCats)-n)))
			break
		}
		b.WriteString(nameStyle.Render(fmt.Sprintf("%-16s", truncStr(c.Category, 16))))
		b.WriteString(amountStyle.Render(fmt.Sprintf("%14s", a.money(c.Amount))))
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(components.ShareBar(c.SharePercent/100, 12))
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" %5.1f%%", c.SharePercent)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
