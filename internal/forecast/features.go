package forecast

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Feature vector layout.
const (
	featBias = iota
	featLast
	featRollingMean
	featMomentum
	featRollingStd
	featTrend
	featWeekdayBaseline
	featWeekdayDeviation
	featWeekday
	featDayOfMonth
	featPosition
)

// FeatureNames labels each slot of the feature vector, in order.
var FeatureNames = [FeatureCount]string{
	"bias",
	"last",
	"rolling mean",
	"momentum",
	"rolling std",
	"trend",
	"weekday baseline",
	"weekday deviation",
	"weekday",
	"day of month",
	"position",
}

// FeatureContext carries the series-level statistics every feature row is
// scaled against. It is computed once from the cleaned history.
type FeatureContext struct {
	Average float64
	Weekday map[time.Weekday]float64
	// Total is the length of history plus horizon, used to normalize position.
	Total int
}

// NewFeatureContext computes the overall and per-weekday averages of history.
func NewFeatureContext(history []HistoryPoint, horizon int) FeatureContext {
	fc := FeatureContext{
		Average: mean(expenses(history)),
		Weekday: make(map[time.Weekday]float64, 7),
		Total:   len(history) + horizon,
	}

	var sums [7]float64
	var counts [7]int
	for _, p := range history {
		d := p.Date.Weekday()
		sums[d] += p.Expense
		counts[d]++
	}
	for d := range sums {
		if counts[d] > 0 {
			fc.Weekday[time.Weekday(d)] = sums[d] / float64(counts[d])
		}
	}
	return fc
}

// scale keeps all-zero histories from dividing by zero.
func (fc FeatureContext) scale() float64 {
	return math.Max(fc.Average, 1)
}

func (fc FeatureContext) baseline(d time.Weekday) float64 {
	if v, ok := fc.Weekday[d]; ok {
		return v
	}
	return fc.Average
}

// BuildFeatures maps target and the points observed strictly before it into
// a FeatureCount-long vector. Only prior observations are read.
func BuildFeatures(target time.Time, prior []HistoryPoint, fc FeatureContext) []float64 {
	scale := fc.scale()
	values := expenses(prior)
	n := len(values)

	lastVal := lastOr(values, fc.Average)
	rollMean, rollStd := fc.Average, 0.0
	var momentum, trend float64
	if n >= 2 {
		rollMean, rollStd = stat.PopMeanStdDev(tail(values, rollingWindow), nil)
		prev := atOr(values, n-2, lastVal)
		first := atOr(values, 0, lastVal)
		momentum = lastVal - prev
		trend = (lastVal - first) / float64(n-1)
	}

	lastBaseline := fc.Average
	if p, ok := lastPoint(prior); ok {
		lastBaseline = fc.baseline(p.Date.Weekday())
	}

	x := make([]float64, FeatureCount)
	x[featBias] = 1
	x[featLast] = lastVal / scale
	x[featRollingMean] = rollMean / scale
	x[featMomentum] = momentum / scale
	x[featRollingStd] = rollStd / scale
	x[featTrend] = trend / scale
	x[featWeekdayBaseline] = fc.baseline(target.Weekday()) / scale
	x[featWeekdayDeviation] = (lastVal - lastBaseline) / scale
	x[featWeekday] = float64(target.Weekday()) / 6
	x[featDayOfMonth] = dayOfMonthNorm(target)
	x[featPosition] = float64(n) / float64(max(fc.Total-1, 1))
	return x
}

func dayOfMonthNorm(t time.Time) float64 {
	days := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	return float64(t.Day()-1) / float64(days-1)
}
