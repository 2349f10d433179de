// Package forecast turns a daily expense history into a dated expense forecast.
//
// The statistical path fits a ridge regression over engineered features and
// refines it with a few boosted decision stumps. An optional neural forecaster
// runs alongside it and, when available, is blended into the result.
package forecast

import "time"

const (
	// DefaultHorizon is the number of days forecast when callers pass no horizon.
	DefaultHorizon = 7

	// FeatureCount is the width of every feature vector.
	FeatureCount = 11

	// RidgeLambda is the L2 penalty added to the normal equations diagonal.
	RidgeLambda = 0.01

	// MaxStumps caps the number of boosting rounds per fit.
	MaxStumps = 3

	// LearningRate scales each stump's contribution.
	LearningRate = 0.4

	singularPivot = 1e-12
	minGainRatio  = 0.01
	rollingWindow = 5
)

// HistoryPoint is one observed day of spending.
type HistoryPoint struct {
	Date    time.Time `json:"date"`
	Expense float64   `json:"expense"`
}

// ForecastPoint is one predicted day of spending.
// PredictedExpense is always a non-negative whole number.
type ForecastPoint struct {
	Date             time.Time `json:"date"`
	PredictedExpense float64   `json:"predicted_expense"`
}

// Tuning holds the fixed blending constants. They have no derivation beyond
// product choice; change them through config rather than in code.
type Tuning struct {
	StatisticalWeight float64
	NeuralWeight      float64
	DampRaw           float64
	DampLast          float64
	DampAverage       float64
}

// DefaultTuning returns the shipped blending constants.
func DefaultTuning() Tuning {
	return Tuning{
		StatisticalWeight: 0.55,
		NeuralWeight:      0.45,
		DampRaw:           0.6,
		DampLast:          0.25,
		DampAverage:       0.15,
	}
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
