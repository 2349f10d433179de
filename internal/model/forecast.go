package model

import (
	"time"

	"github.com/theirongolddev/spendcast/internal/forecast"
)

// ForecastRun is one persisted forecast together with how it was produced.
type ForecastRun struct {
	ID          string
	CreatedAt   time.Time
	Horizon     int
	HistoryDays int
	Category    string
	NeuralUsed  bool
	NeuralError string
	Points      []forecast.ForecastPoint
}

// Total sums the predicted expense across the run.
func (r ForecastRun) Total() float64 {
	var sum float64
	for _, p := range r.Points {
		sum += p.PredictedExpense
	}
	return sum
}
