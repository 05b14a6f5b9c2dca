package app

import (
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// ErrInvalidTransition is returned when a worker state change is not allowed.
var ErrInvalidTransition = errors.New("clusterbus: invalid worker state transition")

// Lifecycle manages the state machine of a single frame worker.
//
// Valid transitions:
//   - Idle -> Running (once per worker)
//   - Running -> Stopping
//   - Running -> Idle (tick failure)
//   - Stopping -> Idle
//
// Reaching Idle after Running is terminal and closes Done.
type Lifecycle struct {
	mu      sync.RWMutex
	frameID uint32
	state   domain.WorkerState
	started bool
	done    chan struct{}
	logger  ports.Logger
	handler ports.EventHandler
}

// NewLifecycle creates a lifecycle in the Idle state.
func NewLifecycle(frameID uint32, logger ports.Logger, handler ports.EventHandler) *Lifecycle {
	return &Lifecycle{
		frameID: frameID,
		state:   domain.WorkerIdle,
		done:    make(chan struct{}),
		logger:  logger,
		handler: handler,
	}
}

// State returns the current worker state.
func (l *Lifecycle) State() domain.WorkerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Done is closed once the worker has returned to Idle.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// TransitionTo attempts to transition to a new state.
// Returns ErrInvalidTransition if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState domain.WorkerState, reason string) error {
	l.mu.Lock()
	oldState := l.state

	valid := false
	switch oldState {
	case domain.WorkerIdle:
		valid = newState == domain.WorkerRunning && !l.started
	case domain.WorkerRunning:
		valid = newState == domain.WorkerStopping || newState == domain.WorkerIdle
	case domain.WorkerStopping:
		valid = newState == domain.WorkerIdle
	}
	if !valid {
		l.mu.Unlock()
		return ErrInvalidTransition
	}

	l.state = newState
	if newState == domain.WorkerRunning {
		l.started = true
	}
	if newState == domain.WorkerIdle {
		close(l.done)
	}
	l.mu.Unlock()

	// Emit event outside of lock
	if l.handler != nil {
		l.handler.OnWorkerStateChange(l.frameID, oldState, newState, reason)
	}

	l.logger.Debug("worker state transition",
		ports.Uint32("frame_id", l.frameID),
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

// WaitWithTimeout waits for the worker to reach Idle.
// Returns a *domain.SupervisionError if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.done:
		return nil
	case <-timer.C:
		l.logger.Warn("worker did not stop, considering it leaked",
			ports.Uint32("frame_id", l.frameID),
			ports.Duration("timeout", timeout),
		)
		return &domain.SupervisionError{FrameID: l.frameID, Timeout: timeout}
	}
}
