package domain

import (
	"fmt"
	"math"
	"sort"
)

// ByteOrder is the bit numbering used to pack a signal into its frame.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// String returns a human-readable representation of the byte order.
func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little_endian"
	case BigEndian:
		return "big_endian"
	default:
		return "unknown"
	}
}

// SignalSpec describes one signal as delivered by a catalog source.
// DeclaredMin and DeclaredMax are optional; limits are derived from the
// raw bit range only when either is nil.
type SignalSpec struct {
	Name        string
	StartBit    uint8
	BitLength   uint8
	ByteOrder   ByteOrder
	Signed      bool
	Scale       float64
	Offset      float64
	DeclaredMin *float64
	DeclaredMax *float64
	Unit        string
}

// FrameSpec describes one frame as delivered by a catalog source.
type FrameSpec struct {
	ID       uint32
	Name     string
	Extended bool
	// Length is the payload size in bytes (0..8).
	Length  uint8
	Signals []SignalSpec
}

// Signal is a named bit-packed field of a frame. Min, Max and Neutral are
// physical values derived once at catalog construction.
type Signal struct {
	Name      string
	FrameID   uint32
	StartBit  uint8
	BitLength uint8
	ByteOrder ByteOrder
	Signed    bool
	Scale     float64
	Offset    float64
	Unit      string

	Min     float64
	Max     float64
	Neutral float64
}

// Clamp limits v to the signal's physical range.
func (s *Signal) Clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Frame is a single addressable bus message owning an ordered set of signals.
type Frame struct {
	ID       uint32
	Name     string
	Extended bool
	Length   uint8
	Signals  []*Signal
}

// Signal returns the frame's signal with the given name, or nil.
func (f *Frame) Signal(name string) *Signal {
	for _, s := range f.Signals {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Catalog is the immutable description of all frames and their signals.
type Catalog struct {
	frames  map[uint32]*Frame
	order   []uint32
	signals map[string]*Signal
}

// NewCatalog builds a catalog from frame descriptions. Frame ids and signal
// names must be unique across the catalog.
func NewCatalog(specs []FrameSpec) (*Catalog, error) {
	c := &Catalog{
		frames:  make(map[uint32]*Frame, len(specs)),
		signals: make(map[string]*Signal),
	}
	for _, fs := range specs {
		if _, dup := c.frames[fs.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate frame id 0x%X", ErrInvalidCatalog, fs.ID)
		}
		if fs.Length > 8 {
			return nil, fmt.Errorf("%w: frame 0x%X length %d exceeds 8 bytes", ErrInvalidCatalog, fs.ID, fs.Length)
		}
		f := &Frame{ID: fs.ID, Name: fs.Name, Extended: fs.Extended, Length: fs.Length}
		for _, ss := range fs.Signals {
			if ss.Name == "" {
				return nil, fmt.Errorf("%w: frame 0x%X has an unnamed signal", ErrInvalidCatalog, fs.ID)
			}
			if _, dup := c.signals[ss.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate signal %q", ErrInvalidCatalog, ss.Name)
			}
			if ss.BitLength == 0 || ss.BitLength > 64 {
				return nil, fmt.Errorf("%w: signal %q bit length %d out of range", ErrInvalidCatalog, ss.Name, ss.BitLength)
			}
			if !FitsPayload(ss.StartBit, ss.BitLength, ss.ByteOrder, fs.Length) {
				return nil, fmt.Errorf("%w: signal %q bits %d+%d do not fit frame 0x%X of %d bytes",
					ErrInvalidCatalog, ss.Name, ss.StartBit, ss.BitLength, fs.ID, fs.Length)
			}
			s := newSignal(fs.ID, ss)
			f.Signals = append(f.Signals, s)
			c.signals[s.Name] = s
		}
		c.frames[f.ID] = f
		c.order = append(c.order, f.ID)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })
	return c, nil
}

func newSignal(frameID uint32, ss SignalSpec) *Signal {
	scale := ss.Scale
	if scale == 0 {
		scale = 1
	}
	s := &Signal{
		Name:      ss.Name,
		FrameID:   frameID,
		StartBit:  ss.StartBit,
		BitLength: ss.BitLength,
		ByteOrder: ss.ByteOrder,
		Signed:    ss.Signed,
		Scale:     scale,
		Offset:    ss.Offset,
		Unit:      ss.Unit,
	}
	s.Min, s.Max = PhysicalLimits(ss.BitLength, ss.Signed, scale, ss.Offset, ss.DeclaredMin, ss.DeclaredMax)
	s.Neutral = s.Clamp(0)
	return s
}

// FitsPayload reports whether a signal lies entirely inside a payload of
// frameLength bytes. Little-endian signals occupy start..start+length-1.
// Big-endian signals use the DBC sawtooth numbering: start is the most
// significant bit and the layout runs down each byte, continuing at bit 7
// of the next byte.
func FitsPayload(start, length uint8, order ByteOrder, frameLength uint8) bool {
	if length == 0 {
		return false
	}
	limit := int(frameLength) * 8
	if int(start) >= limit {
		return false
	}
	return lastBit(start, length, order) < limit
}

// lastBit returns the bit index holding the signal's least significant bit.
// Bytes only increase along a signal, so this bit lies in its highest byte.
func lastBit(start, length uint8, order ByteOrder) int {
	if order == LittleEndian {
		return int(start) + int(length) - 1
	}
	bit := int(start)
	for i := 1; i < int(length); i++ {
		if bit%8 == 0 {
			bit += 15
		} else {
			bit--
		}
	}
	return bit
}

// PhysicalLimits returns the physical range of a signal. Declared limits win
// when both are present; otherwise the raw bit range is transformed by scale
// and offset, swapping the bounds when a negative scale inverts them.
func PhysicalLimits(bitLength uint8, signed bool, scale, offset float64, declaredMin, declaredMax *float64) (float64, float64) {
	if declaredMin != nil && declaredMax != nil {
		lo, hi := *declaredMin, *declaredMax
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi
	}

	var rawMin, rawMax float64
	if signed {
		rawMin = -math.Ldexp(1, int(bitLength)-1)
		rawMax = math.Ldexp(1, int(bitLength)-1) - 1
	} else {
		rawMin = 0
		rawMax = math.Ldexp(1, int(bitLength)) - 1
	}

	lo := rawMin*scale + offset
	hi := rawMax*scale + offset
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Frame returns the frame with the given id.
func (c *Catalog) Frame(id uint32) (*Frame, bool) {
	f, ok := c.frames[id]
	return f, ok
}

// Signal returns the signal with the given name.
func (c *Catalog) Signal(name string) (*Signal, bool) {
	s, ok := c.signals[name]
	return s, ok
}

// FrameOf returns the frame owning the named signal.
func (c *Catalog) FrameOf(name string) (*Frame, bool) {
	s, ok := c.signals[name]
	if !ok {
		return nil, false
	}
	return c.frames[s.FrameID], true
}

// Frames returns all frames ordered by id.
func (c *Catalog) Frames() []*Frame {
	out := make([]*Frame, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.frames[id])
	}
	return out
}

// SignalNames returns every signal name in frame order, then declaration order.
func (c *Catalog) SignalNames() []string {
	out := make([]string, 0, len(c.signals))
	for _, id := range c.order {
		for _, s := range c.frames[id].Signals {
			out = append(out, s.Name)
		}
	}
	return out
}
