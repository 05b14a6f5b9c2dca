package app

import (
	"sync"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// frameSlot holds the last computed physical value of every signal in one
// frame. mu serializes the frame's ticks and off-transition sends.
type frameSlot struct {
	mu     sync.Mutex
	values map[string]float64
}

// frameCache owns one slot per frame id. Slots are created on first use,
// seeded at each signal's physical minimum, and live as long as the engine.
type frameCache struct {
	mu    sync.Mutex
	slots map[uint32]*frameSlot
}

func newFrameCache() *frameCache {
	return &frameCache{slots: make(map[uint32]*frameSlot)}
}

func (c *frameCache) slot(f *domain.Frame) *frameSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[f.ID]; ok {
		return s
	}
	s := &frameSlot{values: make(map[string]float64, len(f.Signals))}
	for _, sig := range f.Signals {
		s.values[sig.Name] = sig.Min
	}
	c.slots[f.ID] = s
	return s
}

// snapshot copies the cached values of a frame. ok is false if the frame
// has never been seeded.
func (c *frameCache) snapshot(frameID uint32) (map[string]float64, bool) {
	c.mu.Lock()
	s, ok := c.slots[frameID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyValues(s.values), true
}

func copyValues(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
