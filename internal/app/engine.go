package app

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// Engine drives periodic transmission of catalog signals, one worker per
// frame id. All methods are safe for concurrent use.
//
// Control calls (Activate, Deactivate and friends) are serialized by one
// mutex, which also covers worker creation and idleness checks. Workers
// never take that mutex.
type Engine struct {
	catalog   *domain.Catalog
	encoder   ports.Encoder
	transport *lockedTransport
	logger    ports.Logger
	handler   ports.EventHandler

	cycle atomic.Int64

	ctrlMu sync.Mutex
	closed bool

	states     *stateTable
	cache      *frameCache
	supervisor *supervisor
}

// New creates an engine over catalog. No worker runs until a signal is activated.
func New(catalog *domain.Catalog, transport ports.Transport, encoder ports.Encoder, opts ...Option) (*Engine, error) {
	if catalog == nil || transport == nil || encoder == nil {
		return nil, fmt.Errorf("%w: catalog, transport and encoder are required", domain.ErrInvalidConfig)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.cycleTime < time.Millisecond {
		return nil, fmt.Errorf("%w: cycle time must be at least 1ms", domain.ErrInvalidConfig)
	}
	if o.graceTimeout <= 0 {
		return nil, fmt.Errorf("%w: grace timeout must be positive", domain.ErrInvalidConfig)
	}

	e := &Engine{
		catalog:   catalog,
		encoder:   encoder,
		transport: &lockedTransport{inner: transport},
		logger:    o.logger,
		handler:   o.handler,
		states:    newStateTable(),
		cache:     newFrameCache(),
	}
	e.cycle.Store(int64(o.cycleTime))
	e.supervisor = newSupervisor(e, o.graceTimeout)
	return e, nil
}

// Catalog returns the catalog the engine was built with.
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// Activate turns a signal on in the given mode and makes sure its frame
// has a running worker. Activating an active signal changes its mode.
func (e *Engine) Activate(name string, mode domain.Mode) error {
	sig, f, err := e.lookup(name)
	if err != nil {
		return err
	}
	if err := mode.Validate(name); err != nil {
		return err
	}

	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	e.states.set(sig.Name, domain.SignalState{Active: true, Mode: mode})
	e.logger.Info("signal activated",
		ports.String("signal", sig.Name),
		ports.Uint32("frame_id", f.ID),
		ports.Bool("extended", f.Extended),
		ports.String("mode", mode.String()),
	)
	return e.supervisor.ensureRunning(f)
}

// Deactivate turns a signal off. It sends one frame with the signal at its
// neutral value, then stops the frame worker if no sibling is still active.
// Force-off and stop failures are both returned.
func (e *Engine) Deactivate(name string) error {
	sig, f, err := e.lookup(name)
	if err != nil {
		return err
	}

	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	prev := e.states.get(sig.Name)
	e.states.set(sig.Name, domain.SignalState{Active: false, Mode: prev.Mode})
	e.logger.Info("signal deactivated",
		ports.String("signal", sig.Name),
		ports.Uint32("frame_id", f.ID),
	)

	offErr := e.forceOff(f, sig)
	return errors.Join(offErr, e.stopIfIdle(f))
}

// ActivateAll turns every catalog signal on in the given mode.
func (e *Engine) ActivateAll(mode domain.Mode) error {
	if err := mode.Validate(""); err != nil {
		return err
	}

	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	var errs []error
	for _, f := range e.catalog.Frames() {
		for _, sig := range f.Signals {
			e.states.set(sig.Name, domain.SignalState{Active: true, Mode: mode})
		}
		if err := e.supervisor.ensureRunning(f); err != nil {
			errs = append(errs, err)
		}
	}
	e.logger.Info("all signals activated", ports.String("mode", mode.String()))
	return errors.Join(errs...)
}

// DeactivateAll turns every active signal off, sending a force-off frame
// for each, then stops the workers of the touched frames.
func (e *Engine) DeactivateAll() error {
	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}

	var errs []error
	for _, f := range e.catalog.Frames() {
		touched := false
		for _, sig := range f.Signals {
			st := e.states.get(sig.Name)
			if !st.Active {
				continue
			}
			touched = true
			e.states.set(sig.Name, domain.SignalState{Active: false, Mode: st.Mode})
			if err := e.forceOff(f, sig); err != nil {
				errs = append(errs, err)
			}
		}
		if touched {
			if err := e.stopIfIdle(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	e.logger.Info("all signals deactivated")
	return errors.Join(errs...)
}

// stopIfIdle stops the worker of f when none of its signals is active.
// Callers hold ctrlMu.
func (e *Engine) stopIfIdle(f *domain.Frame) error {
	if e.states.anyActive(f) {
		return nil
	}
	return e.supervisor.stop(f.ID, "no active signals")
}

// SetCycleTime changes the shared transmission interval. Running workers
// use it from their next tick.
func (e *Engine) SetCycleTime(ms int) error {
	if ms <= 0 {
		return &domain.ValidationError{Input: strconv.Itoa(ms), Reason: "cycle time must be a positive number of milliseconds"}
	}
	d := time.Duration(ms) * time.Millisecond
	e.cycle.Store(int64(d))
	e.logger.Info("cycle time changed", ports.Duration("cycle_time", d))
	return nil
}

// CycleTime returns the current transmission interval.
func (e *Engine) CycleTime() time.Duration {
	return time.Duration(e.cycle.Load())
}

// Shutdown stops every worker and waits, bounded by the grace timeout, for
// all of them to reach Idle. Later control calls return ErrEngineClosed.
func (e *Engine) Shutdown() error {
	e.ctrlMu.Lock()
	defer e.ctrlMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.logger.Info("engine shutting down")
	return e.supervisor.stopAll("shutdown")
}

// SignalState returns the activation state of a signal.
func (e *Engine) SignalState(name string) (domain.SignalState, bool) {
	if _, ok := e.catalog.Signal(name); !ok {
		return domain.SignalState{}, false
	}
	return e.states.get(name), true
}

// WorkerState reports the state of the worker serving frameID. Frames
// without a worker are Idle.
func (e *Engine) WorkerState(frameID uint32) domain.WorkerState {
	return e.supervisor.state(frameID)
}

// LiveWorkers returns the frame ids that currently have a running or
// stopping worker, in ascending order.
func (e *Engine) LiveWorkers() []uint32 {
	return e.supervisor.live()
}

// Snapshot returns a copy of the cached physical values of a frame. ok is
// false if the frame has never been transmitted.
func (e *Engine) Snapshot(frameID uint32) (map[string]float64, bool) {
	return e.cache.snapshot(frameID)
}

func (e *Engine) lookup(name string) (*domain.Signal, *domain.Frame, error) {
	sig, ok := e.catalog.Signal(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownSignal, name)
	}
	f, _ := e.catalog.Frame(sig.FrameID)
	return sig, f, nil
}
