package neural

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeRuntime records Open calls. failures makes the first N opens fail;
// gate, when set, blocks every Open until closed.
type fakeRuntime struct {
	mu       sync.Mutex
	opens    int
	failures int
	gate     chan struct{}
	session  *fakeSession
}

func (r *fakeRuntime) Open(ctx context.Context, _ string) (Session, error) {
	r.mu.Lock()
	r.opens++
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("model artifact missing")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.closed.Load() {
		r.session = &fakeSession{outputs: []Tensor{{Name: DefaultOutputName, Data: []float32{1, 2}}}}
	}
	return r.session, nil
}

func (r *fakeRuntime) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

type fakeSession struct {
	outputs []Tensor
	err     error
	delay   time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
	runs        atomic.Int32
	closed      atomic.Bool

	mu     sync.Mutex
	inputs [][]Tensor
}

func (s *fakeSession) Run(_ context.Context, inputs []Tensor) ([]Tensor, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		m := s.maxInflight.Load()
		if n <= m || s.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	s.runs.Add(1)

	s.mu.Lock()
	s.inputs = append(s.inputs, inputs)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.outputs, s.err
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}
