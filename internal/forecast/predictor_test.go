package forecast

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNeural struct {
	values []float64
	err    error
	panics bool
	calls  int
	last   NeuralRequest
}

func (s *stubNeural) Forecast(_ context.Context, req NeuralRequest) ([]float64, error) {
	s.calls++
	s.last = req
	if s.panics {
		panic("runtime binding crashed")
	}
	return s.values, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPredictExpenses_EmptyHistory(t *testing.T) {
	neural := &stubNeural{values: []float64{1}}
	p := NewPredictor(WithNeural(neural), WithLogger(quietLogger()))

	got := p.PredictExpenses(context.Background(), nil, 3)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, neural.calls)
}

func TestPredictExpenses_DatesAndValues(t *testing.T) {
	history := []HistoryPoint{
		{Date: day(2024, time.January, 3), Expense: 90},
		{Date: day(2024, time.January, 1), Expense: 100},
		{Date: time.Date(2024, time.January, 2, 18, 30, 0, 0, time.UTC), Expense: 120},
	}
	p := NewPredictor(WithLogger(quietLogger()))

	got := p.PredictExpenses(context.Background(), history, 5)
	require.Len(t, got, 5)
	for i, pt := range got {
		assert.Equal(t, day(2024, time.January, 4+i), pt.Date)
		assert.GreaterOrEqual(t, pt.PredictedExpense, 0.0)
		assert.Equal(t, math.Round(pt.PredictedExpense), pt.PredictedExpense)
	}
}

func TestPredictExpenses_DefaultHorizon(t *testing.T) {
	history := series(day(2024, time.January, 1), 10, 20)
	p := NewPredictor(WithLogger(quietLogger()))

	assert.Len(t, p.PredictExpenses(context.Background(), history, 0), DefaultHorizon)
	assert.Len(t, p.PredictExpenses(context.Background(), history, -2), DefaultHorizon)
}

func TestPredictExpenses_FiltersNonFinite(t *testing.T) {
	history := []HistoryPoint{
		{Date: day(2024, time.January, 1), Expense: 40},
		{Date: day(2024, time.January, 2), Expense: math.NaN()},
		{Date: day(2024, time.January, 3), Expense: 40},
		{Date: day(2024, time.January, 9), Expense: math.Inf(1)},
	}
	p := NewPredictor(WithLogger(quietLogger()))

	got := p.PredictExpenses(context.Background(), history, 2)
	require.Len(t, got, 2)
	assert.Equal(t, day(2024, time.January, 4), got[0].Date)
	assert.Equal(t, 40.0, got[0].PredictedExpense)
}

func TestPredictExpenses_OnlyNonFiniteIsEmpty(t *testing.T) {
	history := []HistoryPoint{{Date: day(2024, time.January, 1), Expense: math.NaN()}}
	neural := &stubNeural{values: []float64{1}}
	p := NewPredictor(WithNeural(neural), WithLogger(quietLogger()))

	assert.Empty(t, p.PredictExpenses(context.Background(), history, 3))
	assert.Zero(t, neural.calls)
}

func TestPredictExpenses_NeuralOnlyWeights(t *testing.T) {
	history := series(day(2024, time.January, 1), 100, 120)
	neural := &stubNeural{values: []float64{200.4, 150.2}}
	tuning := DefaultTuning()
	tuning.StatisticalWeight, tuning.NeuralWeight = 0, 1
	p := NewPredictor(WithNeural(neural), WithTuning(tuning), WithLogger(quietLogger()))

	got := p.PredictExpenses(context.Background(), history, 2)
	require.Len(t, got, 2)
	assert.Equal(t, ForecastPoint{Date: day(2024, time.January, 3), PredictedExpense: 200}, got[0])
	assert.Equal(t, ForecastPoint{Date: day(2024, time.January, 4), PredictedExpense: 150}, got[1])
}

func TestForecast_BlendsWithDefaultWeights(t *testing.T) {
	history := series(day(2024, time.January, 1), 100, 120, 90)
	neural := &stubNeural{values: []float64{400, 300}}
	p := NewPredictor(WithNeural(neural), WithLogger(quietLogger()))

	res := p.Forecast(context.Background(), history, 2)
	require.True(t, res.NeuralUsed)
	require.NoError(t, res.NeuralErr)
	require.Len(t, res.Points, 2)

	for i, pt := range res.Points {
		want := math.Max(0, math.Round(0.55*res.Statistical[i]+0.45*neural.values[i]))
		assert.Equal(t, want, pt.PredictedExpense)
	}

	statOnly := NewPredictor(WithLogger(quietLogger())).PredictExpenses(context.Background(), history, 2)
	assert.Greater(t, res.Points[0].PredictedExpense, statOnly[0].PredictedExpense)
	assert.Less(t, res.Points[0].PredictedExpense, 400.0)
}

func TestForecast_NeuralRequest(t *testing.T) {
	history := series(day(2024, time.January, 1), 100, 120, 140)
	neural := &stubNeural{values: []float64{1, 1, 1}}
	p := NewPredictor(WithNeural(neural), WithLogger(quietLogger()))

	p.Forecast(context.Background(), history, 3)
	require.Equal(t, 1, neural.calls)
	assert.Equal(t, NeuralRequest{
		LastDate:    day(2024, time.January, 3),
		LastExpense: 140,
		Average:     120,
		Trend:       20,
		Horizon:     3,
	}, neural.last)
}

func TestForecast_NeuralFailureMatchesStatistical(t *testing.T) {
	history := series(day(2024, time.January, 1), 200, 180, 220)
	want := NewPredictor(WithLogger(quietLogger())).PredictExpenses(context.Background(), history, 4)

	failures := map[string]*stubNeural{
		"error":      {err: errors.New("model artifact missing")},
		"panic":      {panics: true},
		"non-finite": {values: []float64{1, math.NaN(), 3, 4}},
	}
	for name, neural := range failures {
		t.Run(name, func(t *testing.T) {
			p := NewPredictor(WithNeural(neural), WithLogger(quietLogger()))
			res := p.Forecast(context.Background(), history, 4)

			assert.Equal(t, want, res.Points)
			assert.False(t, res.NeuralUsed)
			assert.Error(t, res.NeuralErr)
			assert.Equal(t, 1, neural.calls)
		})
	}
}

func TestForecast_NonFiniteErrorIsTyped(t *testing.T) {
	history := series(day(2024, time.January, 1), 5, 6)
	p := NewPredictor(WithNeural(&stubNeural{values: []float64{math.Inf(1)}}), WithLogger(quietLogger()))

	res := p.Forecast(context.Background(), history, 1)
	assert.ErrorIs(t, res.NeuralErr, ErrNonFiniteOutput)
}

func TestForecast_TruncatesLongNeuralOutput(t *testing.T) {
	history := series(day(2024, time.January, 1), 10, 10)
	neural := &stubNeural{values: []float64{10, 10, 10, 10, 10}}
	p := NewPredictor(WithNeural(neural), WithLogger(quietLogger()))

	res := p.Forecast(context.Background(), history, 2)
	assert.Len(t, res.Points, 2)
	assert.Len(t, res.Neural, 2)
}

func TestForecast_ShortNeuralOutputIsExtended(t *testing.T) {
	history := series(day(2024, time.January, 1), 10, 10)
	tuning := DefaultTuning()
	tuning.StatisticalWeight, tuning.NeuralWeight = 0, 1
	p := NewPredictor(WithNeural(&stubNeural{values: []float64{33}}), WithTuning(tuning), WithLogger(quietLogger()))

	got := p.PredictExpenses(context.Background(), history, 3)
	require.Len(t, got, 3)
	for _, pt := range got {
		assert.Equal(t, 33.0, pt.PredictedExpense)
	}
}

func TestForecast_NegativeHistoryIsFloored(t *testing.T) {
	history := series(day(2024, time.January, 1), -50, -50, -50)
	p := NewPredictor(WithLogger(quietLogger()))

	for _, pt := range p.PredictExpenses(context.Background(), history, 3) {
		assert.Equal(t, 0.0, pt.PredictedExpense)
	}
}
