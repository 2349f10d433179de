package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStats holds totals for one calendar day that had transactions.
type DailyStats struct {
	Date    time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int
}

// Net returns income minus expense.
func (d DailyStats) Net() decimal.Decimal {
	return d.Income.Sub(d.Expense)
}

// SummaryStats holds the top-level aggregate across a period.
type SummaryStats struct {
	Transactions int
	ActiveDays   int
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Net          decimal.Decimal

	ExpensePerDay decimal.Decimal
	LargestDay    time.Time
	LargestSpend  decimal.Decimal
}

// CategoryStats holds the total for one category and transaction type.
type CategoryStats struct {
	Category     string
	Transactions int
	Amount       decimal.Decimal
	SharePercent float64
}

// PeriodComparison holds current and previous period data for delta computation.
type PeriodComparison struct {
	Current  SummaryStats
	Previous SummaryStats
}
