package app

import (
	"context"
	"time"

	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// frameWorker periodically transmits one frame while any of its signals is active.
type frameWorker struct {
	engine    *Engine
	frame     *domain.Frame
	lifecycle *Lifecycle
	cancel    context.CancelFunc
}

// run ticks until cancelled or until a tick fails. Cancellation is only
// observed between ticks, so a started send always completes.
func (w *frameWorker) run(ctx context.Context) {
	for {
		if err := w.engine.tick(w.frame); err != nil {
			w.engine.reportWorkerError(w.frame.ID, err)
			_ = w.lifecycle.TransitionTo(domain.WorkerIdle, err.Error())
			w.engine.supervisor.release(w)
			return
		}

		// Cycle time is re-read every tick so changes apply without restart.
		timer := time.NewTimer(w.engine.CycleTime())
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	_ = w.lifecycle.TransitionTo(domain.WorkerIdle, "cancelled")
	w.engine.supervisor.release(w)
}

// tick recomputes every signal of f into the cache and sends the frame if
// at least one signal is active.
func (e *Engine) tick(f *domain.Frame) error {
	slot := e.cache.slot(f)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	states := e.states.frame(f)
	anyActive := false
	for i, sig := range f.Signals {
		if states[i].Active {
			anyActive = true
		}
		slot.values[sig.Name] = NextValue(sig, slot.values[sig.Name], states[i])
	}
	if !anyActive {
		return nil
	}
	return e.send(f, slot.values)
}

// send encodes values and hands the payload to the transport.
func (e *Engine) send(f *domain.Frame, values map[string]float64) error {
	payload, err := e.encoder.Encode(f, values)
	if err != nil {
		return &domain.EncodeError{FrameID: f.ID, Err: err}
	}
	if err := e.transport.Send(f.ID, payload, f.Extended); err != nil {
		return &domain.TransportError{FrameID: f.ID, Err: err}
	}
	return nil
}

func (e *Engine) reportWorkerError(frameID uint32, err error) {
	e.logger.Error("frame worker aborted",
		ports.Uint32("frame_id", frameID),
		ports.Err(err),
	)
	if e.handler != nil {
		e.handler.OnWorkerError(frameID, err)
	}
}
