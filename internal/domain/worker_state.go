package domain

// WorkerState represents the lifecycle state of a frame worker.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerStopping
)

// String returns a human-readable representation of the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerRunning:
		return "Running"
	case WorkerStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}
