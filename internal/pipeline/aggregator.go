// Package pipeline orchestrates transaction import, ledger caching, and
// metric aggregation.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
)

const dayLayout = "2006-01-02"

// Aggregate computes summary statistics for transactions in [since, until].
func Aggregate(txs []model.Transaction, since, until time.Time) model.SummaryStats {
	filtered := FilterByTime(txs, since, until)

	var stats model.SummaryStats
	stats.Transactions = len(filtered)

	days := AggregateDays(filtered, time.Time{}, time.Time{})
	stats.ActiveDays = len(days)
	for _, d := range days {
		stats.Income = stats.Income.Add(d.Income)
		stats.Expense = stats.Expense.Add(d.Expense)
		if d.Expense.GreaterThan(stats.LargestSpend) {
			stats.LargestSpend = d.Expense
			stats.LargestDay = d.Date
		}
	}
	stats.Net = stats.Income.Sub(stats.Expense)

	if stats.ActiveDays > 0 {
		stats.ExpensePerDay = stats.Expense.Div(decimal.NewFromInt(int64(stats.ActiveDays)))
	}
	return stats
}

// AggregateDays groups transactions by local calendar day and sums income
// and expense. Only days with at least one transaction appear, oldest first.
func AggregateDays(txs []model.Transaction, since, until time.Time) []model.DailyStats {
	filtered := FilterByTime(txs, since, until)

	dayMap := make(map[string]*model.DailyStats)
	for _, tx := range filtered {
		dayKey := tx.OccurredAt.Local().Format(dayLayout)
		ds, ok := dayMap[dayKey]
		if !ok {
			t, _ := time.ParseInLocation(dayLayout, dayKey, time.Local)
			ds = &model.DailyStats{Date: t}
			dayMap[dayKey] = ds
		}
		ds.Count++
		switch tx.Type {
		case model.Income:
			ds.Income = ds.Income.Add(tx.Amount)
		case model.Expense:
			ds.Expense = ds.Expense.Add(tx.Amount)
		}
	}

	days := make([]model.DailyStats, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// FillGaps returns days extended with zero entries for every missing
// calendar day between since and until, oldest first. Charts use it so
// quiet days render as zero.
func FillGaps(days []model.DailyStats, since, until time.Time) []model.DailyStats {
	if since.IsZero() && len(days) > 0 {
		since = days[0].Date
	}
	if since.IsZero() {
		return days
	}

	byKey := make(map[string]model.DailyStats, len(days))
	for _, d := range days {
		byKey[d.Date.Format(dayLayout)] = d
	}

	var out []model.DailyStats
	day := startOfLocalDay(since)
	end := startOfLocalDay(until)
	for !day.After(end) {
		if d, ok := byKey[day.Format(dayLayout)]; ok {
			out = append(out, d)
		} else {
			out = append(out, model.DailyStats{Date: day})
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// ExpenseHistory converts daily totals into forecast input. Days with no
// spending are dropped unless no day had any, in which case every day is kept.
func ExpenseHistory(days []model.DailyStats) []forecast.HistoryPoint {
	all := make([]forecast.HistoryPoint, 0, len(days))
	spent := make([]forecast.HistoryPoint, 0, len(days))
	for _, d := range days {
		p := forecast.HistoryPoint{Date: d.Date, Expense: d.Expense.InexactFloat64()}
		all = append(all, p)
		if d.Expense.IsPositive() {
			spent = append(spent, p)
		}
	}
	if len(spent) > 0 {
		return spent
	}
	return all
}

// AggregateCategories totals transactions of one type by category, largest
// first. Uncategorized transactions are grouped under "Uncategorized".
func AggregateCategories(txs []model.Transaction, typ model.TxType, since, until time.Time) []model.CategoryStats {
	filtered := FilterByType(FilterByTime(txs, since, until), typ)

	catMap := make(map[string]*model.CategoryStats)
	total := decimal.Zero
	for _, tx := range filtered {
		name := tx.Category
		if name == "" {
			name = "Uncategorized"
		}
		cs, ok := catMap[name]
		if !ok {
			cs = &model.CategoryStats{Category: name}
			catMap[name] = cs
		}
		cs.Transactions++
		cs.Amount = cs.Amount.Add(tx.Amount)
		total = total.Add(tx.Amount)
	}

	cats := make([]model.CategoryStats, 0, len(catMap))
	for _, cs := range catMap {
		if total.IsPositive() {
			cs.SharePercent = cs.Amount.Div(total).InexactFloat64() * 100
		}
		cats = append(cats, *cs)
	}
	sort.Slice(cats, func(i, j int) bool {
		if !cats[i].Amount.Equal(cats[j].Amount) {
			return cats[i].Amount.GreaterThan(cats[j].Amount)
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

// FilterByTime returns transactions within [since, until]. A zero bound is open.
func FilterByTime(txs []model.Transaction, since, until time.Time) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return txs
	}

	var result []model.Transaction
	for _, tx := range txs {
		if !since.IsZero() && tx.OccurredAt.Before(since) {
			continue
		}
		if !until.IsZero() && tx.OccurredAt.After(until) {
			continue
		}
		result = append(result, tx)
	}
	return result
}

// FilterByType returns transactions of the given type.
func FilterByType(txs []model.Transaction, typ model.TxType) []model.Transaction {
	var result []model.Transaction
	for _, tx := range txs {
		if tx.Type == typ {
			result = append(result, tx)
		}
	}
	return result
}

// FilterByCategory returns transactions whose category matches the substring.
func FilterByCategory(txs []model.Transaction, category string) []model.Transaction {
	if category == "" {
		return txs
	}
	var result []model.Transaction
	for _, tx := range txs {
		if containsIgnoreCase(tx.Category, category) {
			result = append(result, tx)
		}
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func startOfLocalDay(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.Local)
}

// History builds the forecast input for expenses in [since, until],
// optionally limited to categories matching category.
func History(txs []model.Transaction, since, until time.Time, category string) []forecast.HistoryPoint {
	expenses := FilterByType(FilterByCategory(txs, category), model.Expense)
	return ExpenseHistory(AggregateDays(expenses, since, until))
}
