// Package daemon provides the long-running background forecast service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/spendcast/internal/forecast"
	"github.com/theirongolddev/spendcast/internal/neural"
	"github.com/theirongolddev/spendcast/internal/pipeline"
	"github.com/theirongolddev/spendcast/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	ImportDir    string
	Period       pipeline.Period
	Horizon      int
	Category     string
	Schedule     string
	Addr         string
	EventsBuffer int
}

// Deps are the components the daemon drives. Model may be nil.
type Deps struct {
	Ledger    *store.Ledger
	Predictor *forecast.Predictor
	Model     *neural.SessionManager
	Log       *logrus.Logger
}

// Snapshot is a compact ledger and forecast state for status/event payloads.
type Snapshot struct {
	At            time.Time                `json:"at"`
	Transactions  int                      `json:"transactions"`
	Income        float64                  `json:"income"`
	Expense       float64                  `json:"expense"`
	ExpensePerDay float64                  `json:"expense_per_day"`
	HistoryDays   int                      `json:"history_days"`
	ForecastTotal float64                  `json:"forecast_total"`
	NeuralUsed    bool                     `json:"neural_used"`
	Forecast      []forecast.ForecastPoint `json:"forecast"`
	RunID         string                   `json:"run_id,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Transactions  int     `json:"transactions"`
	Expense       float64 `json:"expense"`
	ForecastTotal float64 `json:"forecast_total"`
}

func (d Delta) isZero() bool {
	return d.Transactions == 0 &&
		d.Expense == 0 &&
		d.ForecastTotal == 0
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time     `json:"started_at"`
	LastPollAt      time.Time     `json:"last_poll_at"`
	Schedule        string        `json:"schedule"`
	PollCount       int64         `json:"poll_count"`
	ImportDir       string        `json:"import_dir,omitempty"`
	Period          string        `json:"period"`
	Horizon         int           `json:"horizon"`
	Category        string        `json:"category,omitempty"`
	Summary         Snapshot      `json:"summary"`
	Model           *neural.Stats `json:"model,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
	EventCount      int           `json:"event_count"`
	SubscriberCount int           `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg  Config
	deps Deps
	log  *logrus.Logger
	now  func() time.Time

	pollMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, deps Deps) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15m"
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8631"
	}
	if cfg.Period == "" {
		cfg.Period = pipeline.PeriodMonth
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = forecast.DefaultHorizon
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Predictor == nil {
		deps.Predictor = forecast.NewPredictor(forecast.WithLogger(deps.Log))
	}

	return &Service{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Log,
		now:       time.Now,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API routes.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/forecast", s.handleForecast).Methods(http.MethodGet)
	r.HandleFunc("/v1/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	return r
}

// Run starts HTTP endpoints and the refresh schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	sched := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(s.log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(s.log)),
	))
	if _, err := sched.AddFunc(s.cfg.Schedule, func() { s.pollOnce(ctx) }); err != nil {
		return fmt.Errorf("daemon schedule %q: %w", s.cfg.Schedule, err)
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	snap, err := s.refresh(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = s.now()
		s.pollCount++
		s.mu.Unlock()
		s.log.WithError(err).Error("daemon poll failed")
		return
	}

	s.mu.RLock()
	prev, prevExists := s.snapshot, s.hasSnapshot
	s.mu.RUnlock()

	evType := "snapshot"
	var delta Delta
	if prevExists {
		delta = diffSnapshots(prev, snap)
		evType = "forecast_delta"
	}
	publish := !prevExists || !delta.isZero()

	if publish && s.deps.Ledger != nil {
		run, err := s.deps.Ledger.SaveForecastRun(snapshotRun(snap, s.cfg))
		if err != nil {
			s.log.WithError(err).Warn("saving forecast run")
		} else {
			snap.RunID = run.ID
		}
	} else if prevExists {
		snap.RunID = prev.RunID
	}

	var ev Event
	s.mu.Lock()
	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = snap.At
	s.pollCount++
	s.lastError = ""
	if publish {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      evType,
			Timestamp: snap.At,
			Snapshot:  snap,
			Delta:     delta,
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

// refresh imports new files, reloads the ledger and recomputes the forecast.
func (s *Service) refresh(ctx context.Context) (Snapshot, error) {
	if s.deps.Ledger == nil {
		return Snapshot{}, errors.New("daemon: no ledger configured")
	}
	if s.cfg.ImportDir != "" {
		res, err := pipeline.SyncDir(s.cfg.ImportDir, s.deps.Ledger, s.log, nil)
		if err != nil {
			return Snapshot{}, fmt.Errorf("importing %s: %w", s.cfg.ImportDir, err)
		}
		if res.Reparsed > 0 || res.Removed > 0 {
			s.log.WithFields(logrus.Fields{
				"reparsed": res.Reparsed,
				"removed":  res.Removed,
				"imported": res.Imported,
			}).Info("import directory changed")
		}
	}

	now := s.now()
	since, until := s.cfg.Period.Range(now)
	txs, err := s.deps.Ledger.LoadTransactions(since, until)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading ledger: %w", err)
	}

	scoped := pipeline.FilterByCategory(txs, s.cfg.Category)
	stats := pipeline.Aggregate(scoped, since, until)
	history := pipeline.History(txs, since, until, s.cfg.Category)
	res := s.deps.Predictor.Forecast(ctx, history, s.cfg.Horizon)

	snap := Snapshot{
		At:            now,
		Transactions:  stats.Transactions,
		Income:        stats.Income.InexactFloat64(),
		Expense:       stats.Expense.InexactFloat64(),
		ExpensePerDay: stats.ExpensePerDay.InexactFloat64(),
		HistoryDays:   len(history),
		NeuralUsed:    res.NeuralUsed,
		Forecast:      res.Points,
	}
	for _, p := range res.Points {
		snap.ForecastTotal += p.PredictedExpense
	}
	return snap, nil
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Transactions:  curr.Transactions - prev.Transactions,
		Expense:       roundCents(curr.Expense - prev.Expense),
		ForecastTotal: curr.ForecastTotal - prev.ForecastTotal,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		Schedule:        s.cfg.Schedule,
		PollCount:       s.pollCount,
		ImportDir:       s.cfg.ImportDir,
		Period:          string(s.cfg.Period),
		Horizon:         s.cfg.Horizon,
		Category:        s.cfg.Category,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.deps.Model != nil {
		ms := s.deps.Model.Stats()
		st.Model = &ms
	}
	return st
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: s.now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
