package neural

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/spendcast/internal/forecast"
)

const (
	DefaultInputName  = "X"
	DefaultOutputName = "Y"

	// InputWidth is the number of columns per input row:
	// projected expense, average expense, normalized weekday.
	InputWidth = 3
)

// ErrNoOutput is returned when the model produced no output tensors.
var ErrNoOutput = errors.New("neural: model returned no outputs")

// Forecaster adapts a SessionManager to forecast.NeuralForecaster.
type Forecaster struct {
	manager    *SessionManager
	inputName  string
	outputName string

	// Timeout bounds one forecast including time spent queued. Zero waits
	// indefinitely.
	Timeout time.Duration
}

// NewForecaster returns a forecaster feeding inputName and reading
// outputName. Empty names select the defaults.
func NewForecaster(m *SessionManager, inputName, outputName string) *Forecaster {
	if inputName == "" {
		inputName = DefaultInputName
	}
	if outputName == "" {
		outputName = DefaultOutputName
	}
	return &Forecaster{manager: m, inputName: inputName, outputName: outputName}
}

// Forecast runs the model on a linear-trend projection of req.
func (f *Forecaster) Forecast(ctx context.Context, req forecast.NeuralRequest) ([]float64, error) {
	if req.Horizon <= 0 {
		return nil, fmt.Errorf("neural: horizon must be positive, got %d", req.Horizon)
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	in := BuildInput(req, f.inputName)

	var out []float64
	err := f.manager.Do(ctx, func(ctx context.Context, s Session) error {
		outputs, err := s.Run(ctx, []Tensor{in})
		if err != nil {
			return fmt.Errorf("neural: run: %w", err)
		}
		t, ok := pickOutput(outputs, f.outputName)
		if !ok {
			return ErrNoOutput
		}
		out = make([]float64, len(t.Data))
		for i, v := range t.Data {
			out[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuildInput lays out one (horizon, 3) row-major float32 tensor. Row i
// describes the day i+1 days after req.LastDate.
func BuildInput(req forecast.NeuralRequest, name string) Tensor {
	h := max(req.Horizon, 0)
	data := make([]float32, h*InputWidth)

	y, m, d := req.LastDate.Date()
	base := time.Date(y, m, d, 0, 0, 0, 0, req.LastDate.Location())
	for i := 0; i < h; i++ {
		next := base.AddDate(0, 0, i+1)
		projected := math.Max(0, req.LastExpense+req.Trend*float64(i+1))

		row := data[i*InputWidth:]
		row[0] = float32(projected)
		row[1] = float32(req.Average)
		row[2] = float32(float64(next.Weekday()) / 6)
	}
	return Tensor{Name: name, Shape: []int64{int64(h), InputWidth}, Data: data}
}

// pickOutput prefers the tensor called name and otherwise takes the first.
func pickOutput(outputs []Tensor, name string) (Tensor, bool) {
	for _, t := range outputs {
		if t.Name == name {
			return t, true
		}
	}
	if len(outputs) == 0 {
		return Tensor{}, false
	}
	return outputs[0], true
}
