package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
)

// MonthStart returns midnight on the first day of now's month, local time.
func MonthStart(now time.Time) time.Time {
	l := now.Local()
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, time.Local)
}

// MonthToDateSpend sums expenses from the start of now's month through now.
func MonthToDateSpend(txs []model.Transaction, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range FilterByType(FilterByTime(txs, MonthStart(now), now), model.Expense) {
		total = total.Add(tx.Amount)
	}
	return total
}

// ProjectBudget projects the month's total spend. Forecast days that fall
// in the current month after today count at their predicted value; any
// remaining days past the forecast horizon count at the month-to-date burn
// rate. monthly may be nil when no budget is configured.
func ProjectBudget(spent decimal.Decimal, points []forecast.ForecastPoint, monthly *decimal.Decimal, now time.Time) model.BudgetStats {
	l := now.Local()
	today := startOfLocalDay(l)
	daysInMonth := time.Date(l.Year(), l.Month()+1, 0, 0, 0, 0, 0, time.Local).Day()
	elapsed := l.Day()

	stats := model.BudgetStats{
		MonthlyBudget: monthly,
		CurrentSpend:  spent,
		DaysRemaining: daysInMonth - elapsed,
	}
	stats.DailyBurnRate = spent.Div(decimal.NewFromInt(int64(elapsed)))

	covered := 0
	for _, p := range points {
		d := p.Date.Local()
		if !d.After(today) || d.Month() != l.Month() || d.Year() != l.Year() {
			continue
		}
		stats.ForecastSpend = stats.ForecastSpend.Add(decimal.NewFromFloat(p.PredictedExpense))
		covered++
	}

	uncovered := max(stats.DaysRemaining-covered, 0)
	stats.ProjectedMonthly = spent.
		Add(stats.ForecastSpend).
		Add(stats.DailyBurnRate.Mul(decimal.NewFromInt(int64(uncovered))))

	if monthly != nil && monthly.IsPositive() {
		hundred := decimal.NewFromInt(100)
		stats.BudgetUsedPercent = spent.Div(*monthly).Mul(hundred).InexactFloat64()
		stats.ProjectedPercent = stats.ProjectedMonthly.Div(*monthly).Mul(hundred).InexactFloat64()
	}
	return stats
}
