package forecast

import "math"

// StatisticalForecast is the output of the ridge + boosting path.
type StatisticalForecast struct {
	Values  []float64
	Model   Ensemble
	Context FeatureContext
}

// ForecastStatistical fits the ensemble on history and rolls it forward
// horizon days. Each step's features are built from the synthetic series
// (history followed by earlier forecasts), and the raw prediction is damped
// toward the last known value and the overall average.
func ForecastStatistical(history []HistoryPoint, horizon int, t Tuning) StatisticalForecast {
	fc := NewFeatureContext(history, horizon)
	rows := BuildDataset(history, fc)
	model := Refine(rows, fitBase(rows))

	out := StatisticalForecast{
		Values:  make([]float64, 0, horizon),
		Model:   model,
		Context: fc,
	}

	lastObs, ok := lastPoint(history)
	if !ok {
		return out
	}

	synthetic := make([]HistoryPoint, len(history), len(history)+horizon)
	copy(synthetic, history)

	day := startOfDay(lastObs.Date)
	for step := 0; step < horizon; step++ {
		day = day.AddDate(0, 0, 1)
		x := BuildFeatures(day, synthetic, fc)
		raw := model.Predict(x)

		lastKnown := fc.Average
		if p, ok := lastPoint(synthetic); ok {
			lastKnown = p.Expense
		}
		v := t.DampRaw*raw + t.DampLast*lastKnown + t.DampAverage*fc.Average
		v = math.Max(0, v)

		out.Values = append(out.Values, v)
		synthetic = append(synthetic, HistoryPoint{Date: day, Expense: v})
	}
	return out
}

// fitBase solves the ridge system, except when every target is identical:
// the bias-only mean model then fits exactly and ridge shrinkage would only
// add residual noise for the stumps to chase.
func fitBase(rows []FeatureRow) RidgeModel {
	width := FeatureCount
	if len(rows) > 0 {
		width = len(rows[0].Features)
	}
	if constantTargets(rows) {
		m := meanModel(rows, width)
		m.Fallback = false
		return m
	}
	return FitRidge(rows, RidgeLambda)
}

func constantTargets(rows []FeatureRow) bool {
	for i := 1; i < len(rows); i++ {
		if rows[i].Target != rows[0].Target {
			return false
		}
	}
	return true
}
