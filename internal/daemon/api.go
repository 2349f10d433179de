package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/source"
)

const (
	maxPredictBody = 1 << 20 // 1 MB
	maxHorizon     = 366
)

// ForecastResponse is served at /v1/forecast and /v1/predict.
type ForecastResponse struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Horizon     int                      `json:"horizon"`
	NeuralUsed  bool                     `json:"neural_used"`
	Total       float64                  `json:"total"`
	Points      []forecast.ForecastPoint `json:"points"`
	RunID       string                   `json:"run_id,omitempty"`
}

// PredictRequest is the body accepted by /v1/predict. Dates may be any
// layout the importers accept.
type PredictRequest struct {
	History []PredictDay `json:"history"`
	Horizon int          `json:"horizon"`
}

// PredictDay is one day of caller-supplied history.
type PredictDay struct {
	Date    string  `json:"date"`
	Expense float64 `json:"expense"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) handleForecast(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	snap, ok := s.snapshot, s.hasSnapshot
	s.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "forecast not computed yet"})
		return
	}
	writeJSON(w, http.StatusOK, ForecastResponse{
		GeneratedAt: snap.At,
		Horizon:     len(snap.Forecast),
		NeuralUsed:  snap.NeuralUsed,
		Total:       snap.ForecastTotal,
		Points:      snap.Forecast,
		RunID:       snap.RunID,
	})
}

func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxPredictBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Horizon < 0 || req.Horizon > maxHorizon {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("horizon must be between 0 and %d", maxHorizon)})
		return
	}

	history := make([]forecast.HistoryPoint, 0, len(req.History))
	for i, d := range req.History {
		at, err := source.ParseDate(d.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("history[%d]: %v", i, err)})
			return
		}
		history = append(history, forecast.HistoryPoint{Date: at, Expense: d.Expense})
	}

	res := s.deps.Predictor.Forecast(r.Context(), history, req.Horizon)
	resp := ForecastResponse{
		GeneratedAt: s.now(),
		Horizon:     len(res.Points),
		NeuralUsed:  res.NeuralUsed,
		Points:      res.Points,
	}
	for _, p := range res.Points {
		resp.Total += p.PredictedExpense
	}
	writeJSON(w, http.StatusOK, resp)
}

func snapshotRun(snap Snapshot, cfg Config) model.ForecastRun {
	return model.ForecastRun{
		CreatedAt:   snap.At,
		Horizon:     cfg.Horizon,
		HistoryDays: snap.HistoryDays,
		Category:    cfg.Category,
		NeuralUsed:  snap.NeuralUsed,
		Points:      snap.Forecast,
	}
}
