package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNonFiniteOutput is reported when the neural forecaster returns NaN or Inf.
var ErrNonFiniteOutput = errors.New("forecast: neural output is not finite")

// NeuralRequest is what the neural forecaster needs to project a horizon.
type NeuralRequest struct {
	LastDate    time.Time
	LastExpense float64
	Average     float64
	Trend       float64
	Horizon     int
}

// NeuralForecaster produces an independent forecast vector. Implementations
// may fail; the Predictor treats any failure as "no neural forecast".
type NeuralForecaster interface {
	Forecast(ctx context.Context, req NeuralRequest) ([]float64, error)
}

// Result is a forecast together with the pieces it was built from.
type Result struct {
	Points      []ForecastPoint
	Statistical []float64
	Neural      []float64
	NeuralUsed  bool
	NeuralErr   error
	Model       Ensemble
	Average     float64
	Trend       float64
}

// Predictor orchestrates the statistical and neural paths.
type Predictor struct {
	neural NeuralForecaster
	tuning Tuning
	log    *logrus.Logger
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithNeural enables the neural path.
func WithNeural(n NeuralForecaster) Option {
	return func(p *Predictor) { p.neural = n }
}

// WithTuning overrides the blending constants.
func WithTuning(t Tuning) Option {
	return func(p *Predictor) { p.tuning = t }
}

// WithLogger sets the logger used for neural-path diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(p *Predictor) { p.log = l }
}

// NewPredictor returns a statistics-only predictor unless WithNeural is given.
func NewPredictor(opts ...Option) *Predictor {
	p := &Predictor{tuning: DefaultTuning(), log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PredictExpenses returns horizon dated forecast points following the last
// history date. It never fails; an empty history yields an empty forecast.
func (p *Predictor) PredictExpenses(ctx context.Context, history []HistoryPoint, horizon int) []ForecastPoint {
	return p.Forecast(ctx, history, horizon).Points
}

// Forecast is PredictExpenses with the intermediate vectors exposed.
func (p *Predictor) Forecast(ctx context.Context, history []HistoryPoint, horizon int) Result {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	series := clean(history)
	lastObs, ok := lastPoint(series)
	if !ok {
		return Result{Points: []ForecastPoint{}}
	}

	values := expenses(series)
	avg := mean(values)
	var trend float64
	if len(values) > 1 {
		first := atOr(values, 0, lastObs.Expense)
		trend = (lastObs.Expense - first) / float64(len(values)-1)
	}

	stats := ForecastStatistical(series, horizon, p.tuning)

	outcome := p.runNeural(ctx, NeuralRequest{
		LastDate:    lastObs.Date,
		LastExpense: lastObs.Expense,
		Average:     avg,
		Trend:       trend,
		Horizon:     horizon,
	})
	if len(outcome.values) > horizon {
		outcome.values = outcome.values[:horizon]
	}

	blended := Blend(stats.Values, outcome, p.tuning)

	points := make([]ForecastPoint, len(blended))
	day := startOfDay(lastObs.Date)
	for i, v := range blended {
		day = day.AddDate(0, 0, 1)
		points[i] = ForecastPoint{
			Date:             day,
			PredictedExpense: math.Max(0, math.Round(v)),
		}
	}

	return Result{
		Points:      points,
		Statistical: stats.Values,
		Neural:      outcome.values,
		NeuralUsed:  outcome.available,
		NeuralErr:   outcome.err,
		Model:       stats.Model,
		Average:     avg,
		Trend:       trend,
	}
}

// runNeural calls the neural forecaster and folds every failure, including a
// panic inside the runtime binding, into an unavailable outcome.
func (p *Predictor) runNeural(ctx context.Context, req NeuralRequest) (out neuralOutcome) {
	if p.neural == nil {
		return neuralOutcome{}
	}

	defer func() {
		if r := recover(); r != nil {
			out = neuralOutcome{err: fmt.Errorf("forecast: neural forecaster panicked: %v", r)}
			p.logNeuralFailure(req, out.err)
		}
	}()

	values, err := p.neural.Forecast(ctx, req)
	if err == nil {
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				err = ErrNonFiniteOutput
				break
			}
		}
	}
	if err != nil {
		p.logNeuralFailure(req, err)
		return neuralOutcome{err: err}
	}
	return neuralOutcome{values: values, available: true}
}

func (p *Predictor) logNeuralFailure(req NeuralRequest, err error) {
	p.log.WithFields(logrus.Fields{
		"horizon": req.Horizon,
		"error":   err,
	}).Warn("neural forecast unavailable, using statistical forecast")
}

// clean drops non-finite observations, floors negatives at zero, normalizes
// dates to calendar days, and sorts ascending. The input is not modified.
func clean(history []HistoryPoint) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(history))
	for _, p := range history {
		if math.IsNaN(p.Expense) || math.IsInf(p.Expense, 0) {
			continue
		}
		out = append(out, HistoryPoint{
			Date:    startOfDay(p.Date),
			Expense: math.Max(0, p.Expense),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
