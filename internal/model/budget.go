package model

import "github.com/shopspring/decimal"

// BudgetStats holds month-to-date spend and its projection.
type BudgetStats struct {
	MonthlyBudget     *decimal.Decimal
	CurrentSpend      decimal.Decimal
	ForecastSpend     decimal.Decimal
	DailyBurnRate     decimal.Decimal
	ProjectedMonthly  decimal.Decimal
	DaysRemaining     int
	BudgetUsedPercent float64
	ProjectedPercent  float64
}
