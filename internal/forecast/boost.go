package forecast

import "sort"

// DecisionStump is a single-split weak learner.
type DecisionStump struct {
	FeatureIndex int     `json:"feature_index"`
	Threshold    float64 `json:"threshold"`
	LeftValue    float64 `json:"left_value"`
	RightValue   float64 `json:"right_value"`
	Gain         float64 `json:"gain"`
}

// Predict returns LeftValue when x[FeatureIndex] <= Threshold, else RightValue.
// A missing feature reads as zero.
func (s DecisionStump) Predict(x []float64) float64 {
	if atOr(x, s.FeatureIndex, 0) <= s.Threshold {
		return s.LeftValue
	}
	return s.RightValue
}

// Ensemble is a ridge base model corrected by boosted stumps.
type Ensemble struct {
	Base   RidgeModel
	Stumps []DecisionStump
	Rate   float64
}

// Predict returns the base prediction plus each stump scaled by the rate.
func (e Ensemble) Predict(x []float64) float64 {
	y := e.Base.Predict(x)
	for _, s := range e.Stumps {
		y += e.Rate * s.Predict(x)
	}
	return y
}

// Refine boosts base with up to MaxStumps stumps fit on squared-error
// residuals, stopping early once a round cannot remove more than 1% of the
// remaining error.
func Refine(rows []FeatureRow, base RidgeModel) Ensemble {
	ens := Ensemble{Base: base, Rate: LearningRate}
	if len(rows) == 0 {
		return ens
	}

	preds := make([]float64, len(rows))
	for i, r := range rows {
		preds[i] = base.Predict(r.Features)
	}

	residuals := make([]float64, len(rows))
	for round := 0; round < MaxStumps; round++ {
		allZero := true
		var baseline float64
		for i, r := range rows {
			residuals[i] = r.Target - preds[i]
			baseline += residuals[i] * residuals[i]
			if residuals[i] != 0 {
				allZero = false
			}
		}
		if allZero {
			break
		}

		stump, ok := bestStump(rows, residuals, baseline)
		if !ok || stump.Gain <= minGainRatio*baseline {
			break
		}

		ens.Stumps = append(ens.Stumps, stump)
		for i, r := range rows {
			preds[i] += ens.Rate * stump.Predict(r.Features)
		}
	}
	return ens
}

// bestStump scans every feature and every distinct value of it as a
// threshold, returning the split with the largest error reduction.
func bestStump(rows []FeatureRow, residuals []float64, baseline float64) (DecisionStump, bool) {
	var best DecisionStump
	found := false

	width := len(rows[0].Features)
	for f := 0; f < width; f++ {
		for _, thr := range distinctValues(rows, f) {
			var leftSum, rightSum float64
			var leftN, rightN int
			for i, r := range rows {
				if atOr(r.Features, f, 0) <= thr {
					leftSum += residuals[i]
					leftN++
				} else {
					rightSum += residuals[i]
					rightN++
				}
			}

			var leftMean, rightMean float64
			if leftN > 0 {
				leftMean = leftSum / float64(leftN)
			}
			if rightN > 0 {
				rightMean = rightSum / float64(rightN)
			}

			var sse float64
			for i, r := range rows {
				d := residuals[i] - rightMean
				if atOr(r.Features, f, 0) <= thr {
					d = residuals[i] - leftMean
				}
				sse += d * d
			}

			gain := baseline - sse
			if !found || gain > best.Gain {
				best = DecisionStump{
					FeatureIndex: f,
					Threshold:    thr,
					LeftValue:    leftMean,
					RightValue:   rightMean,
					Gain:         gain,
				}
				found = true
			}
		}
	}
	return best, found
}

func distinctValues(rows []FeatureRow, f int) []float64 {
	seen := make(map[float64]struct{}, len(rows))
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := atOr(r.Features, f, 0)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	return vals
}
