package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// supervisor keeps at most one live worker per frame id. A worker stays in
// the table until it has returned to Idle, including while Stopping.
type supervisor struct {
	engine  *Engine
	grace   time.Duration
	mu      sync.Mutex
	workers map[uint32]*frameWorker
}

func newSupervisor(e *Engine, grace time.Duration) *supervisor {
	return &supervisor{
		engine:  e,
		grace:   grace,
		workers: make(map[uint32]*frameWorker),
	}
}

// ensureRunning starts a worker for f unless one is already running.
// A worker that is still stopping is waited for, bounded by the grace
// timeout. Callers hold the engine's control mutex, so no other goroutine
// registers a worker for f concurrently.
func (s *supervisor) ensureRunning(f *domain.Frame) error {
	for {
		s.mu.Lock()
		w, ok := s.workers[f.ID]
		s.mu.Unlock()
		if !ok {
			break
		}
		state := w.lifecycle.State()
		if state == domain.WorkerRunning {
			return nil
		}
		if state == domain.WorkerStopping {
			if err := w.lifecycle.WaitWithTimeout(s.grace); err != nil {
				return err
			}
		}
		s.release(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &frameWorker{
		engine:    s.engine,
		frame:     f,
		lifecycle: NewLifecycle(f.ID, s.engine.logger, s.engine.handler),
		cancel:    cancel,
	}
	if err := w.lifecycle.TransitionTo(domain.WorkerRunning, "signal activated"); err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	s.workers[f.ID] = w
	s.mu.Unlock()

	go w.run(ctx)
	return nil
}

// release removes w from the table if it is still the registered worker.
func (s *supervisor) release(w *frameWorker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers[w.frame.ID] == w {
		delete(s.workers, w.frame.ID)
	}
}

// stop cancels the worker of frameID and waits for it to reach Idle.
func (s *supervisor) stop(frameID uint32, reason string) error {
	s.mu.Lock()
	w, ok := s.workers[frameID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := w.lifecycle.TransitionTo(domain.WorkerStopping, reason); err != nil {
		// Already stopping or idle after a failure.
		return w.lifecycle.WaitWithTimeout(s.grace)
	}
	w.cancel()
	return w.lifecycle.WaitWithTimeout(s.grace)
}

// stopAll cancels every worker, then waits for all of them within one
// shared grace period. Leaked workers are joined into the returned error.
func (s *supervisor) stopAll(reason string) error {
	s.mu.Lock()
	workers := make([]*frameWorker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		if err := w.lifecycle.TransitionTo(domain.WorkerStopping, reason); err == nil {
			w.cancel()
		}
	}

	deadline := time.Now().Add(s.grace)
	var errs []error
	for _, w := range workers {
		remaining := time.Until(deadline)
		if remaining < time.Millisecond {
			remaining = time.Millisecond
		}
		if err := w.lifecycle.WaitWithTimeout(remaining); err != nil {
			errs = append(errs, &domain.SupervisionError{FrameID: w.frame.ID, Timeout: s.grace})
		}
	}
	if len(errs) > 0 {
		s.engine.logger.Warn("shutdown left leaked workers", ports.Int("count", len(errs)))
	}
	return errors.Join(errs...)
}

func (s *supervisor) state(frameID uint32) domain.WorkerState {
	s.mu.Lock()
	w, ok := s.workers[frameID]
	s.mu.Unlock()
	if !ok {
		return domain.WorkerIdle
	}
	return w.lifecycle.State()
}

func (s *supervisor) live() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, 0, len(s.workers))
	for id, w := range s.workers {
		if w.lifecycle.State() != domain.WorkerIdle {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
