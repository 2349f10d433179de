// Package neural manages the shared inference session behind the neural
// expense forecaster and turns a trend projection into model input.
package neural

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrReset is returned to callers whose in-flight load was discarded by Reset.
var ErrReset = errors.New("neural: session manager was reset")

// State is the lifecycle state of the shared session.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tensor is a named float32 tensor in row-major order.
type Tensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Session is a loaded model. Run must not be called concurrently; the
// SessionManager guarantees that.
type Session interface {
	Run(ctx context.Context, inputs []Tensor) ([]Tensor, error)
	Close() error
}

// Runtime opens sessions from a model artifact.
type Runtime interface {
	Open(ctx context.Context, modelPath string) (Session, error)
}

// Stats is a point-in-time view of the manager.
type Stats struct {
	State     State
	ModelPath string
	Loads     int
	Runs      int
	Queued    int
	LastError string
	LoadedAt  time.Time
}

// SessionManager owns one lazily created Session. Creation happens at most
// once per generation; a failed creation is not cached, so the next request
// retries. All work against the session is serialized through a FIFO lock.
type SessionManager struct {
	runtime   Runtime
	modelPath string
	log       *logrus.Logger

	group singleflight.Group

	mu       sync.Mutex
	state    State
	session  Session
	lastErr  error
	gen      uint64
	lock     *fifoLock // fixed for the manager's lifetime
	loads    int
	runs     int
	loadedAt time.Time
}

// NewSessionManager returns a manager in the unloaded state. Nothing is
// opened until the first request.
func NewSessionManager(rt Runtime, modelPath string, log *logrus.Logger) *SessionManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionManager{
		runtime:   rt,
		modelPath: modelPath,
		log:       log,
		lock:      &fifoLock{},
	}
}

// Session returns the shared session, creating it on first use. Concurrent
// callers during creation share the same attempt.
func (m *SessionManager) Session(ctx context.Context) (Session, error) {
	m.mu.Lock()
	if m.session != nil {
		s := m.session
		m.mu.Unlock()
		return s, nil
	}
	gen := m.gen
	m.state = StateLoading
	m.mu.Unlock()

	v, err, _ := m.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return m.load(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(Session), nil
}

func (m *SessionManager) load(ctx context.Context, gen uint64) (Session, error) {
	m.mu.Lock()
	if m.session != nil && m.gen == gen {
		s := m.session
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	start := time.Now()
	s, err := m.runtime.Open(ctx, m.modelPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		if err == nil {
			_ = s.Close()
			err = ErrReset
		}
		return nil, err
	}
	if err != nil {
		m.state = StateFailed
		m.lastErr = err
		m.log.WithFields(logrus.Fields{
			"model": m.modelPath,
			"error": err,
		}).Warn("neural session load failed")
		return nil, fmt.Errorf("neural: load %s: %w", m.modelPath, err)
	}

	m.session = s
	m.state = StateReady
	m.lastErr = nil
	m.loads++
	m.loadedAt = time.Now()
	m.log.WithFields(logrus.Fields{
		"model":    m.modelPath,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("neural session loaded")
	return s, nil
}

// Do runs fn with exclusive access to the session. Callers are served in
// arrival order, and the lock is released whether fn succeeds or not.
func (m *SessionManager) Do(ctx context.Context, fn func(context.Context, Session) error) error {
	if err := m.lock.Lock(ctx); err != nil {
		return err
	}
	defer m.lock.Unlock()

	s, err := m.Session(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
	return fn(ctx, s)
}

// Reset discards the cached session. It queues on the exclusivity lock like
// any other caller, so work admitted before it finishes against the old
// session and the session is closed only once no run holds it. Work queued
// after Reset starts from a fresh load. Reset must not be called from inside
// a Do callback.
func (m *SessionManager) Reset() error {
	// Never cancelled, so a held session is always waited out.
	_ = m.lock.Lock(context.Background())
	defer m.lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.session != nil {
		err = m.session.Close()
	}
	m.session = nil
	m.state = StateUnloaded
	m.lastErr = nil
	m.gen++
	return err
}

// Close releases the session once in-flight work is done. The manager may be
// reused afterwards.
func (m *SessionManager) Close() error {
	return m.Reset()
}

// State reports the current lifecycle state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent load failure, cleared by a later
// successful load or a Reset.
func (m *SessionManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Stats returns a snapshot for status reporting.
func (m *SessionManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		State:     m.state,
		ModelPath: m.modelPath,
		Loads:     m.loads,
		Runs:      m.runs,
		Queued:    m.lock.queued(),
		LoadedAt:  m.loadedAt,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}
