package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetConfig holds budget tracking settings. Monthly applies when no
// schedule entry is in effect.
type BudgetConfig struct {
	Monthly  *float64      `toml:"monthly,omitempty"`
	Schedule []BudgetEntry `toml:"schedule,omitempty"`
}

// BudgetEntry is a monthly budget effective from a date (YYYY-MM-DD).
type BudgetEntry struct {
	From    string  `toml:"from"`
	Monthly float64 `toml:"monthly"`

	effective time.Time
}

func (b *BudgetConfig) sortSchedule() error {
	for i := range b.Schedule {
		t, err := time.Parse("2006-01-02", b.Schedule[i].From)
		if err != nil {
			return fmt.Errorf("budget schedule entry %d: %w", i, err)
		}
		b.Schedule[i].effective = t
	}
	sort.SliceStable(b.Schedule, func(i, j int) bool {
		return b.Schedule[i].effective.Before(b.Schedule[j].effective)
	})
	return nil
}

// BudgetAt returns the monthly budget in effect at the given time.
// If at is zero, the latest schedule entry is used.
func (b BudgetConfig) BudgetAt(at time.Time) (decimal.Decimal, bool) {
	var selected *float64
	if b.Monthly != nil {
		v := *b.Monthly
		selected = &v
	}

	if len(b.Schedule) > 0 {
		if at.IsZero() {
			v := b.Schedule[len(b.Schedule)-1].Monthly
			return decimal.NewFromFloat(v), true
		}
		for _, e := range b.Schedule {
			from := e.effective
			if from.IsZero() {
				from, _ = time.Parse("2006-01-02", e.From)
			}
			if !at.Before(from) {
				v := e.Monthly
				selected = &v
				continue
			}
			break
		}
	}

	if selected == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*selected), true
}
