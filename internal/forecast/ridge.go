package forecast

import "math"

// RidgeModel is a fitted linear model. Fallback reports that the normal
// equations were singular and the bias-only mean model was used instead.
type RidgeModel struct {
	Weights  []float64
	Fallback bool
}

// Predict returns the dot product of x with the weights. Indices present on
// only one side contribute nothing.
func (m RidgeModel) Predict(x []float64) float64 {
	var sum float64
	n := min(len(x), len(m.Weights))
	for i := 0; i < n; i++ {
		sum += m.Weights[i] * x[i]
	}
	return sum
}

// FitRidge solves (XᵗX + λI)w = Xᵗy by Gauss-Jordan elimination with partial
// pivoting. It never fails: a singular system yields the mean model.
func FitRidge(rows []FeatureRow, lambda float64) RidgeModel {
	width := FeatureCount
	if len(rows) > 0 {
		width = len(rows[0].Features)
	}

	xtx := make([][]float64, width)
	for i := range xtx {
		xtx[i] = make([]float64, width)
	}
	xty := make([]float64, width)

	for _, r := range rows {
		for i := 0; i < width; i++ {
			xi := atOr(r.Features, i, 0)
			if xi == 0 {
				continue
			}
			xty[i] += xi * r.Target
			for j := 0; j < width; j++ {
				xtx[i][j] += xi * atOr(r.Features, j, 0)
			}
		}
	}
	for i := 0; i < width; i++ {
		xtx[i][i] += lambda
	}

	w, ok := gaussJordan(xtx, xty)
	if !ok {
		return meanModel(rows, width)
	}
	return RidgeModel{Weights: w}
}

// meanModel predicts the target mean through the bias weight alone.
func meanModel(rows []FeatureRow, width int) RidgeModel {
	w := make([]float64, max(width, featBias+1))
	w[featBias] = mean(targets(rows))
	return RidgeModel{Weights: w, Fallback: true}
}

// gaussJordan solves a·x = b in place on an augmented copy. It reports false
// when a pivot is smaller than singularPivot or not finite.
func gaussJordan(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		p := m[pivot][col]
		if !(math.Abs(p) >= singularPivot) || math.IsInf(p, 0) {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		for k := col; k <= n; k++ {
			m[col][k] /= p
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := m[r][col]
			if f == 0 {
				continue
			}
			for k := col; k <= n; k++ {
				m[r][k] -= f * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = m[i][n]
	}
	return x, true
}
