package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/model"
)

func localDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func tx(at time.Time, typ model.TxType, amount, category string) model.Transaction {
	return model.Transaction{
		ID:         at.Format(time.RFC3339Nano) + amount + category,
		Amount:     decimal.RequireFromString(amount),
		Type:       typ,
		Category:   category,
		OccurredAt: at,
	}
}

func sampleLedger() []model.Transaction {
	return []model.Transaction{
		tx(localDay(2024, 1, 1).Add(9*time.Hour), model.Expense, "10.50", "Food"),
		tx(localDay(2024, 1, 1).Add(18*time.Hour), model.Expense, "4.50", "Transport"),
		tx(localDay(2024, 1, 2).Add(12*time.Hour), model.Income, "1000", "Salary"),
		tx(localDay(2024, 1, 4).Add(8*time.Hour), model.Expense, "45", "Food"),
	}
}

func TestAggregate(t *testing.T) {
	stats := Aggregate(sampleLedger(), time.Time{}, time.Time{})

	if stats.Transactions != 4 {
		t.Errorf("Transactions = %d, want 4", stats.Transactions)
	}
	if stats.ActiveDays != 3 {
		t.Errorf("ActiveDays = %d, want 3", stats.ActiveDays)
	}
	if !stats.Expense.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expense = %s, want 60", stats.Expense)
	}
	if !stats.Net.Equal(decimal.NewFromInt(940)) {
		t.Errorf("Net = %s, want 940", stats.Net)
	}
	if !stats.ExpensePerDay.Equal(decimal.NewFromInt(20)) {
		t.Errorf("ExpensePerDay = %s, want 20", stats.ExpensePerDay)
	}
	if !stats.LargestDay.Equal(localDay(2024, 1, 4)) {
		t.Errorf("LargestDay = %v, want Jan 4", stats.LargestDay)
	}
}

func TestAggregate_RespectsBounds(t *testing.T) {
	stats := Aggregate(sampleLedger(), localDay(2024, 1, 2), localDay(2024, 1, 3))
	if stats.Transactions != 1 || !stats.Income.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("got %d txs, income %s; want 1 tx, income 1000", stats.Transactions, stats.Income)
	}
}

func TestAggregateDays(t *testing.T) {
	days := AggregateDays(sampleLedger(), time.Time{}, time.Time{})
	if len(days) != 3 {
		t.Fatalf("days = %d, want 3", len(days))
	}
	if !days[0].Date.Equal(localDay(2024, 1, 1)) || days[0].Count != 2 {
		t.Errorf("day0 = %+v", days[0])
	}
	if !days[0].Expense.Equal(decimal.NewFromInt(15)) {
		t.Errorf("day0 expense = %s, want 15", days[0].Expense)
	}
	if !days[1].Net().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("day1 net = %s, want 1000", days[1].Net())
	}
}

func TestFillGaps(t *testing.T) {
	days := AggregateDays(sampleLedger(), time.Time{}, time.Time{})
	filled := FillGaps(days, localDay(2024, 1, 1), localDay(2024, 1, 5))

	if len(filled) != 5 {
		t.Fatalf("filled = %d days, want 5", len(filled))
	}
	if !filled[2].Date.Equal(localDay(2024, 1, 3)) || !filled[2].Expense.IsZero() {
		t.Errorf("gap day = %+v, want zero Jan 3", filled[2])
	}
	if !filled[3].Expense.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Jan 4 expense = %s, want 45", filled[3].Expense)
	}
}

func TestExpenseHistory_DropsZeroDays(t *testing.T) {
	days := AggregateDays(sampleLedger(), time.Time{}, time.Time{})
	history := ExpenseHistory(days)

	if len(history) != 2 {
		t.Fatalf("history = %d points, want 2", len(history))
	}
	if history[0].Expense != 15 || history[1].Expense != 45 {
		t.Errorf("history = %+v", history)
	}
}

func TestExpenseHistory_FallsBackWhenNoSpending(t *testing.T) {
	days := []model.DailyStats{
		{Date: localDay(2024, 1, 1), Income: decimal.NewFromInt(5)},
		{Date: localDay(2024, 1, 2)},
	}
	if history := ExpenseHistory(days); len(history) != 2 {
		t.Errorf("history = %d points, want 2", len(history))
	}
}

func TestHistory_FiltersCategory(t *testing.T) {
	history := History(sampleLedger(), time.Time{}, time.Time{}, "food")
	if len(history) != 2 || history[0].Expense != 10.5 || history[1].Expense != 45 {
		t.Errorf("history = %+v", history)
	}
}

func TestAggregateCategories(t *testing.T) {
	ledger := append(sampleLedger(), tx(localDay(2024, 1, 5), model.Expense, "40", ""))
	cats := AggregateCategories(ledger, model.Expense, time.Time{}, time.Time{})

	if len(cats) != 3 {
		t.Fatalf("categories = %d, want 3", len(cats))
	}
	if cats[0].Category != "Food" || !cats[0].Amount.Equal(decimal.NewFromFloat(55.5)) {
		t.Errorf("top = %+v, want Food 55.5", cats[0])
	}
	if cats[1].Category != "Uncategorized" {
		t.Errorf("second = %q, want Uncategorized", cats[1].Category)
	}
	if math.Abs(cats[0].SharePercent-55.5) > 1e-9 {
		t.Errorf("share = %v, want 55.5", cats[0].SharePercent)
	}
}
