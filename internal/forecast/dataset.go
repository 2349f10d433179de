package forecast

// FeatureRow is one training example.
type FeatureRow struct {
	Features []float64
	Target   float64
}

// BuildDataset builds one row per history point. Row i sees history[:i] as
// its prior, so the first row has an empty prior and the last sees every
// point but its own.
func BuildDataset(history []HistoryPoint, fc FeatureContext) []FeatureRow {
	rows := make([]FeatureRow, 0, len(history))
	for i, p := range history {
		rows = append(rows, FeatureRow{
			Features: BuildFeatures(p.Date, history[:i], fc),
			Target:   p.Expense,
		})
	}
	return rows
}

func targets(rows []FeatureRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Target
	}
	return out
}
