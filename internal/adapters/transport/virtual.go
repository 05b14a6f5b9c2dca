package transport

import "sync"

// DefaultVirtualHistory is the number of frames a virtual bus opened through
// the registry keeps.
const DefaultVirtualHistory = 4096

func init() {
	Register("virtual", func(channel string, bitrate int) (Bus, error) {
		return NewVirtualBus(DefaultVirtualHistory), nil
	})
}

// Frame is a frame observed on a virtual bus.
type Frame struct {
	ID       uint32
	Extended bool
	Data     []byte
}

// VirtualBus is an in-memory bus. It keeps the most recent frames and fans
// every frame out to subscribers. Slow subscribers miss frames rather than
// block senders.
type VirtualBus struct {
	mu      sync.Mutex
	closed  bool
	history int
	frames  []Frame
	subs    map[chan Frame]struct{}
}

// NewVirtualBus creates a bus that keeps at most history frames.
// history <= 0 keeps every frame.
func NewVirtualBus(history int) *VirtualBus {
	return &VirtualBus{
		history: history,
		subs:    make(map[chan Frame]struct{}),
	}
}

// Send records the frame and delivers it to subscribers.
func (b *VirtualBus) Send(frameID uint32, payload []byte, isExtended bool) error {
	if err := ValidateFrame(frameID, payload, isExtended); err != nil {
		return err
	}
	f := Frame{ID: frameID, Extended: isExtended, Data: append([]byte(nil), payload...)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.frames = append(b.frames, f)
	if b.history > 0 && len(b.frames) > b.history {
		b.frames = b.frames[len(b.frames)-b.history:]
	}
	for ch := range b.subs {
		select {
		case ch <- f:
		default:
		}
	}
	return nil
}

// Frames returns a copy of the recorded frames, oldest first.
func (b *VirtualBus) Frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Frame(nil), b.frames...)
}

// Subscribe returns a channel receiving every later frame and a function
// that detaches it. The channel is closed on detach or Close.
func (b *VirtualBus) Subscribe(buffer int) (<-chan Frame, func()) {
	ch := make(chan Frame, buffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Close detaches all subscribers. Later sends fail with ErrClosed.
func (b *VirtualBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	return nil
}
