package forecast

import "math"

// neuralOutcome is the result of the best-effort neural path. When available
// is false, err holds the cause (nil when no neural forecaster is configured).
type neuralOutcome struct {
	values    []float64
	available bool
	err       error
}

// Blend combines the statistical and neural vectors index by index. A shorter
// vector is extended with its last value; an empty neural vector defers to the
// statistical value. Without a neural outcome the statistical vector is
// returned unchanged.
func Blend(statistical []float64, neural neuralOutcome, t Tuning) []float64 {
	if !neural.available {
		out := make([]float64, len(statistical))
		copy(out, statistical)
		return out
	}

	n := max(len(statistical), len(neural.values))
	out := make([]float64, n)
	for i := range out {
		s := atOr(statistical, i, lastOr(statistical, 0))
		nv, ok := at(neural.values, i)
		if !ok {
			nv = s
			if lv, ok := last(neural.values); ok {
				nv = lv
			}
		}
		out[i] = math.Max(0, t.StatisticalWeight*s+t.NeuralWeight*nv)
	}
	return out
}
