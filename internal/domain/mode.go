package domain

import (
	"math"
	"strconv"
	"strings"
)

// ModeKind selects how an active signal's value evolves each tick.
type ModeKind int

const (
	// ModeAuto increments the physical value by 1.0 per tick up to the maximum.
	ModeAuto ModeKind = iota
	// ModeFixed transmits a constant value, clamped into range every tick.
	ModeFixed
)

// Mode is the requested activation mode of a signal.
type Mode struct {
	Kind  ModeKind
	Value float64
}

// Auto returns the auto-increment mode.
func Auto() Mode { return Mode{Kind: ModeAuto} }

// Fixed returns a constant-value mode.
func Fixed(v float64) Mode { return Mode{Kind: ModeFixed, Value: v} }

// String returns "A" for auto mode and the numeric value otherwise.
func (m Mode) String() string {
	if m.Kind == ModeAuto {
		return "A"
	}
	return strconv.FormatFloat(m.Value, 'g', -1, 64)
}

// Validate rejects fixed values that are not finite numbers.
func (m Mode) Validate(signal string) error {
	if m.Kind == ModeFixed && (math.IsNaN(m.Value) || math.IsInf(m.Value, 0)) {
		return &ValidationError{Signal: signal, Input: m.String(), Reason: "value must be a finite number"}
	}
	return nil
}

// ParseMode interprets operator input: "A" (any case) or an empty string
// selects auto mode, any finite number selects fixed mode.
func ParseMode(text string) (Mode, error) {
	raw := strings.TrimSpace(text)
	if raw == "" || strings.EqualFold(raw, "A") {
		return Auto(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Mode{}, &ValidationError{Input: raw, Reason: "use 'A' or a number"}
	}
	m := Fixed(v)
	if err := m.Validate(""); err != nil {
		return Mode{}, err
	}
	return m, nil
}

// SignalState is the activation flag and requested mode of one signal.
type SignalState struct {
	Active bool
	Mode   Mode
}
