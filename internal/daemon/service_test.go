package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/model"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/store"
)

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func expense(id string, day int, amount int64) model.Transaction {
	return model.Transaction{
		ID:         id,
		Amount:     decimal.NewFromInt(amount),
		Type:       model.Expense,
		Category:   "Food",
		OccurredAt: time.Date(2024, time.March, day, 10, 0, 0, 0, time.Local),
		Source:     "test",
	}
}

func newTestService(t *testing.T, withLedger bool) (*Service, *store.Ledger) {
	t.Helper()
	log := quietLogger()
	deps := Deps{
		Predictor: forecast.NewPredictor(forecast.WithLogger(log)),
		Log:       log,
	}
	if withLedger {
		l, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		deps.Ledger = l
	}
	s := New(Config{Period: pipeline.PeriodMonth, Horizon: 3, EventsBuffer: 10}, deps)
	s.now = func() time.Time { return fixedNow }
	return s, deps.Ledger
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Transactions: 10, Expense: 100.10, ForecastTotal: 70}
	curr := Snapshot{Transactions: 12, Expense: 112.30, ForecastTotal: 84}

	delta := diffSnapshots(prev, curr)
	if delta.Transactions != 2 {
		t.Fatalf("Transactions delta = %d, want 2", delta.Transactions)
	}
	if math.Abs(delta.Expense-12.2) > 1e-9 {
		t.Fatalf("Expense delta = %.2f, want 12.20", delta.Expense)
	}
	if delta.ForecastTotal != 14 {
		t.Fatalf("ForecastTotal delta = %v, want 14", delta.ForecastTotal)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots should diff to zero")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, Deps{Log: quietLogger()})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnce_PublishesOnlyOnChange(t *testing.T) {
	s, ledger := newTestService(t, true)
	require.NoError(t, ledger.SaveTransactions([]model.Transaction{
		expense("a", 10, 100),
		expense("b", 11, 120),
		expense("c", 12, 110),
	}, nil))

	s.pollOnce(context.Background())
	st := s.snapshotStatus()
	require.Empty(t, st.LastError)
	assert.Equal(t, 3, st.Summary.Transactions)
	assert.Equal(t, 330.0, st.Summary.Expense)
	assert.Len(t, st.Summary.Forecast, 3)
	assert.NotEmpty(t, st.Summary.RunID)
	assert.Equal(t, 1, st.EventCount)

	s.pollOnce(context.Background())
	assert.Equal(t, 1, s.snapshotStatus().EventCount)
	assert.Equal(t, int64(2), s.snapshotStatus().PollCount)

	require.NoError(t, ledger.SaveTransactions([]model.Transaction{expense("d", 13, 90)}, nil))
	s.pollOnce(context.Background())

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	s.mu.RUnlock()
	require.Len(t, events, 2)
	assert.Equal(t, "snapshot", events[0].Type)
	assert.Equal(t, "forecast_delta", events[1].Type)
	assert.Equal(t, 1, events[1].Delta.Transactions)
	assert.Equal(t, 90.0, events[1].Delta.Expense)

	runs, err := ledger.ForecastRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPollOnce_RecordsErrors(t *testing.T) {
	s, _ := newTestService(t, false)

	s.pollOnce(context.Background())
	st := s.snapshotStatus()
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, int64(1), st.PollCount)
	assert.Zero(t, st.EventCount)
}

func TestHandler_HealthAndForecast(t *testing.T) {
	s, ledger := newTestService(t, true)
	require.NoError(t, ledger.SaveTransactions([]model.Transaction{expense("a", 10, 50)}, nil))
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/forecast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.pollOnce(context.Background())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/forecast", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ForecastResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Horizon)
	require.Len(t, resp.Points, 3)
	assert.Equal(t, 11, resp.Points[0].Date.Local().Day())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, "month", st.Period)
	assert.Equal(t, 1, st.Summary.Transactions)
}

func TestHandler_Predict(t *testing.T) {
	s, _ := newTestService(t, false)
	h := s.Handler()

	body := `{"history":[{"date":"2024-01-01","expense":100},{"date":"2024-01-02","expense":120}],"horizon":2}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ForecastResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Points, 2)
	assert.Equal(t, 3, resp.Points[0].Date.Day())
	assert.Equal(t, 4, resp.Points[1].Date.Day())
	assert.False(t, resp.NeuralUsed)
	for _, p := range resp.Points {
		assert.GreaterOrEqual(t, p.PredictedExpense, 0.0)
		assert.Equal(t, math.Round(p.PredictedExpense), p.PredictedExpense)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(`{"history":[]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = ForecastResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Points)
}

func TestHandler_PredictRejectsBadInput(t *testing.T) {
	s, _ := newTestService(t, false)
	h := s.Handler()

	for _, body := range []string{
		`not json`,
		`{"history":[],"horizon":1000}`,
		`{"history":[{"date":"yesterday","expense":1}]}`,
		`{"history":[],"unknown":true}`,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_StreamSendsSnapshot(t *testing.T) {
	s, _ := newTestService(t, false)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", line)
}
