// Package codec packs and unpacks physical signal values using the bit
// layouts of go.einride.tech/can.
package codec

import (
	"errors"
	"fmt"
	"math"

	"go.einride.tech/can"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// ErrMissingSignal is returned when a value for a frame signal is absent.
var ErrMissingSignal = errors.New("missing signal value")

// RangeError indicates that a physical value does not fit the signal's bit width.
type RangeError struct {
	Signal string
	Value  float64
	Raw    float64
	Bits   uint8
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("signal %s: value %g (raw %g) does not fit in %d bits", e.Signal, e.Value, e.Raw, e.Bits)
}

// LayoutError indicates a signal placed outside the frame payload.
type LayoutError struct {
	Signal      string
	Start       uint8
	Length      uint8
	FrameLength uint8
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("signal %s: bits %d+%d outside %d-byte payload", e.Signal, e.Start, e.Length, e.FrameLength)
}

// Encoder implements ports.Encoder.
type Encoder struct{}

// NewEncoder creates an encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode converts every signal of frame to its raw value and packs it.
func (Encoder) Encode(frame *domain.Frame, values map[string]float64) ([]byte, error) {
	var data can.Data
	for _, sig := range frame.Signals {
		v, ok := values[sig.Name]
		if !ok {
			return nil, fmt.Errorf("signal %s: %w", sig.Name, ErrMissingSignal)
		}
		if err := checkLayout(frame, sig); err != nil {
			return nil, err
		}
		raw := math.Round((v - sig.Offset) / sig.Scale)
		lo, hi := rawBounds(sig)
		if math.IsNaN(raw) || raw < lo || raw > hi {
			return nil, &RangeError{Signal: sig.Name, Value: v, Raw: raw, Bits: sig.BitLength}
		}
		put(&data, sig, raw)
	}
	out := make([]byte, frame.Length)
	copy(out, data[:frame.Length])
	return out, nil
}

// Decode unpacks the physical value of every signal of frame from payload.
func Decode(frame *domain.Frame, payload []byte) (map[string]float64, error) {
	var data can.Data
	if len(payload) > len(data) {
		return nil, fmt.Errorf("payload length %d exceeds %d bytes", len(payload), len(data))
	}
	copy(data[:], payload)

	out := make(map[string]float64, len(frame.Signals))
	for _, sig := range frame.Signals {
		if err := checkLayout(frame, sig); err != nil {
			return nil, err
		}
		out[sig.Name] = get(&data, sig)*sig.Scale + sig.Offset
	}
	return out, nil
}

// checkLayout rejects signals that would be truncated by the frame length
// or wrap inside the 64-bit buffer.
func checkLayout(frame *domain.Frame, sig *domain.Signal) error {
	if frame.Length > 8 || !domain.FitsPayload(sig.StartBit, sig.BitLength, sig.ByteOrder, frame.Length) {
		return &LayoutError{Signal: sig.Name, Start: sig.StartBit, Length: sig.BitLength, FrameLength: frame.Length}
	}
	return nil
}

func rawBounds(sig *domain.Signal) (float64, float64) {
	if sig.Signed {
		return -math.Ldexp(1, int(sig.BitLength)-1), math.Ldexp(1, int(sig.BitLength)-1) - 1
	}
	return 0, math.Ldexp(1, int(sig.BitLength)) - 1
}

func put(data *can.Data, sig *domain.Signal, raw float64) {
	switch {
	case sig.ByteOrder == domain.BigEndian && sig.Signed:
		data.SetSignedBitsBigEndian(sig.StartBit, sig.BitLength, int64(raw))
	case sig.ByteOrder == domain.BigEndian:
		data.SetUnsignedBitsBigEndian(sig.StartBit, sig.BitLength, uint64(raw))
	case sig.Signed:
		data.SetSignedBitsLittleEndian(sig.StartBit, sig.BitLength, int64(raw))
	default:
		data.SetUnsignedBitsLittleEndian(sig.StartBit, sig.BitLength, uint64(raw))
	}
}

func get(data *can.Data, sig *domain.Signal) float64 {
	switch {
	case sig.ByteOrder == domain.BigEndian && sig.Signed:
		return float64(data.SignedBitsBigEndian(sig.StartBit, sig.BitLength))
	case sig.ByteOrder == domain.BigEndian:
		return float64(data.UnsignedBitsBigEndian(sig.StartBit, sig.BitLength))
	case sig.Signed:
		return float64(data.SignedBitsLittleEndian(sig.StartBit, sig.BitLength))
	default:
		return float64(data.UnsignedBitsLittleEndian(sig.StartBit, sig.BitLength))
	}
}
