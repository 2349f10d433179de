package forecast

// at returns s[i] and true when i is in range.
func at(s []float64, i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i], true
}

// atOr returns s[i], or def when i is out of range.
func atOr(s []float64, i int, def float64) float64 {
	if v, ok := at(s, i); ok {
		return v
	}
	return def
}

// last returns the final element of s and true when s is non-empty.
func last(s []float64) (float64, bool) {
	return at(s, len(s)-1)
}

// lastOr returns the final element of s, or def when s is empty.
func lastOr(s []float64, def float64) float64 {
	return atOr(s, len(s)-1, def)
}

// tail returns at most the last n elements of s.
func tail(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func lastPoint(points []HistoryPoint) (HistoryPoint, bool) {
	if len(points) == 0 {
		return HistoryPoint{}, false
	}
	return points[len(points)-1], true
}

func expenses(points []HistoryPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Expense
	}
	return out
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
