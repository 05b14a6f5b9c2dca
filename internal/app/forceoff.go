package app

import (
	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// forceOff sends one frame with sig at its neutral value and every sibling
// at its cached value, independent of the frame worker's cadence. The
// neutral value is written back to the cache so later ticks continue from it.
func (e *Engine) forceOff(f *domain.Frame, sig *domain.Signal) error {
	slot := e.cache.slot(f)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	values := copyValues(slot.values)
	values[sig.Name] = sig.Neutral
	err := e.send(f, values)
	slot.values = values

	if err != nil {
		e.logger.Error("force-off send failed",
			ports.Uint32("frame_id", f.ID),
			ports.String("signal", sig.Name),
			ports.Err(err),
		)
		return err
	}
	e.logger.Debug("force-off sent",
		ports.Uint32("frame_id", f.ID),
		ports.String("signal", sig.Name),
		ports.Float64("neutral", sig.Neutral),
	)
	return nil
}
