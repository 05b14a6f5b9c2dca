package ports

import "github.com/bft-labs/clusterbus/internal/domain"

// Encoder packs physical signal values into a frame payload.
type Encoder interface {
	// Encode returns frame.Length bytes. It fails if a signal of the frame is
	// missing from values or a value does not fit the signal's bit width.
	Encode(frame *domain.Frame, values map[string]float64) ([]byte, error)
}
