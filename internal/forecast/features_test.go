package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func series(start time.Time, values ...float64) []HistoryPoint {
	out := make([]HistoryPoint, len(values))
	for i, v := range values {
		out[i] = HistoryPoint{Date: start.AddDate(0, 0, i), Expense: v}
	}
	return out
}

func TestBuildFeatures_EmptyPriorUsesAverage(t *testing.T) {
	history := series(day(2024, time.January, 1), 10, 20, 30)
	fc := NewFeatureContext(history, 2)

	x := BuildFeatures(day(2024, time.January, 1), nil, fc)
	require.Len(t, x, FeatureCount)

	assert.Equal(t, 1.0, x[featBias])
	assert.InDelta(t, 1.0, x[featLast], 1e-12)
	assert.InDelta(t, 1.0, x[featRollingMean], 1e-12)
	assert.Zero(t, x[featRollingStd])
	assert.Zero(t, x[featMomentum])
	assert.Zero(t, x[featTrend])
	assert.Zero(t, x[featWeekdayDeviation])
	assert.Zero(t, x[featPosition])
}

func TestBuildFeatures_PriorStatistics(t *testing.T) {
	history := series(day(2024, time.January, 1), 10, 20, 30)
	fc := NewFeatureContext(history, 2)
	require.InDelta(t, 20.0, fc.Average, 1e-12)

	x := BuildFeatures(day(2024, time.January, 4), history, fc)

	assert.InDelta(t, 1.5, x[featLast], 1e-12)
	assert.InDelta(t, 1.0, x[featRollingMean], 1e-12)
	assert.InDelta(t, 0.5, x[featMomentum], 1e-12)
	assert.InDelta(t, 0.5, x[featTrend], 1e-12)
	assert.InDelta(t, math.Sqrt(200.0/3.0)/20, x[featRollingStd], 1e-12)
	// 3 priors out of a 5-long sequence.
	assert.InDelta(t, 0.75, x[featPosition], 1e-12)
}

func TestBuildFeatures_RollingWindowIsLastFive(t *testing.T) {
	history := series(day(2024, time.March, 1), 1000, 10, 10, 10, 10, 10)
	fc := NewFeatureContext(history, 0)

	x := BuildFeatures(day(2024, time.March, 7), history, fc)
	assert.InDelta(t, 10/fc.Average, x[featRollingMean], 1e-12)
	assert.Zero(t, x[featRollingStd])
}

func TestBuildFeatures_WeekdayBaselineFallsBackToAverage(t *testing.T) {
	// 2024-01-01 is a Monday; only Monday and Tuesday are observed.
	history := series(day(2024, time.January, 1), 40, 80)
	fc := NewFeatureContext(history, 1)

	monday := BuildFeatures(day(2024, time.January, 8), history, fc)
	assert.InDelta(t, 40/fc.Average, monday[featWeekdayBaseline], 1e-12)

	friday := BuildFeatures(day(2024, time.January, 5), history, fc)
	assert.InDelta(t, 1.0, friday[featWeekdayBaseline], 1e-12)

	// Last prior is a Tuesday at its own baseline.
	assert.Zero(t, monday[featWeekdayDeviation])
}

func TestBuildFeatures_CalendarNormalization(t *testing.T) {
	fc := NewFeatureContext(nil, 0)

	sunday := BuildFeatures(day(2024, time.March, 31), nil, fc)
	assert.Zero(t, sunday[featWeekday])
	assert.InDelta(t, 1.0, sunday[featDayOfMonth], 1e-12)

	saturday := BuildFeatures(day(2024, time.June, 1), nil, fc)
	assert.InDelta(t, 1.0, saturday[featWeekday], 1e-12)
	assert.Zero(t, saturday[featDayOfMonth])

	leap := BuildFeatures(day(2024, time.February, 15), nil, fc)
	assert.InDelta(t, 14.0/28.0, leap[featDayOfMonth], 1e-12)
}

func TestBuildFeatures_AllZeroHistoryStaysFinite(t *testing.T) {
	history := series(day(2024, time.January, 1), 0, 0, 0)
	fc := NewFeatureContext(history, 3)
	assert.Equal(t, 1.0, fc.scale())

	x := BuildFeatures(day(2024, time.January, 4), history, fc)
	for i, v := range x {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "feature %d = %v", i, v)
	}
}

func TestBuildDataset_UsesTruePriorHistory(t *testing.T) {
	history := series(day(2024, time.January, 1), 5, 15, 25, 35)
	fc := NewFeatureContext(history, 2)

	rows := BuildDataset(history, fc)
	require.Len(t, rows, len(history))

	for i, r := range rows {
		assert.Len(t, r.Features, FeatureCount)
		assert.Equal(t, history[i].Expense, r.Target)
		assert.Equal(t, BuildFeatures(history[i].Date, history[:i], fc), r.Features)
	}
	assert.Zero(t, rows[0].Features[featPosition])
	assert.InDelta(t, 3.0/5.0, rows[3].Features[featPosition], 1e-12)
}
