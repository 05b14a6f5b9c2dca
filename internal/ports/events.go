package ports

import "github.com/bft-labs/clusterbus/internal/domain"

// EventHandler receives engine events. Calls are made synchronously from
// worker and control goroutines; they must not block or call back into the
// engine's control methods.
type EventHandler interface {
	// OnWorkerStateChange is called after a frame worker changes state.
	OnWorkerStateChange(frameID uint32, previous, current domain.WorkerState, reason string)

	// OnWorkerError is called when a worker aborts on an encode or transport failure.
	OnWorkerError(frameID uint32, err error)
}
