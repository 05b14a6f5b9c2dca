package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent error conditions in the clusterbus domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrUnknownSignal is returned when a control call names a signal that is not in the catalog.
	ErrUnknownSignal = errors.New("clusterbus: unknown signal")

	// ErrInvalidCatalog is returned when catalog construction fails.
	ErrInvalidCatalog = errors.New("clusterbus: invalid catalog")

	// ErrEngineClosed is returned by control calls made after Shutdown.
	ErrEngineClosed = errors.New("clusterbus: engine closed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("clusterbus: invalid configuration")

	// ErrUnknownInterface is returned when a transport name is not registered.
	ErrUnknownInterface = errors.New("clusterbus: unknown interface")
)

// ValidationError reports a control request rejected before it reached the
// engine state. No state changes when it is returned.
type ValidationError struct {
	Signal string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Signal == "" {
		return fmt.Sprintf("invalid value %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid value %q for %s: %s", e.Input, e.Signal, e.Reason)
}

// EncodeError indicates that a set of physical values could not be packed
// into the frame layout.
type EncodeError struct {
	FrameID uint32
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode frame 0x%X: %v", e.FrameID, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// TransportError indicates that the bus transport rejected or failed a send.
type TransportError struct {
	FrameID uint32
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send frame 0x%X: %v", e.FrameID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SupervisionError indicates that a frame worker did not reach Idle within
// the grace timeout after cancellation. The worker is considered leaked.
type SupervisionError struct {
	FrameID uint32
	Timeout time.Duration
}

func (e *SupervisionError) Error() string {
	return fmt.Sprintf("worker for frame 0x%X did not stop within %v", e.FrameID, e.Timeout)
}
