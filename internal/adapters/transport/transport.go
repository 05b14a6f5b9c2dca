// Package transport provides the bus transports the engine sends frames on.
//
// Transports are looked up by interface name in a registry, the way CAN
// tools select a backend: "socketcan" talks to a Linux CAN netdev and
// "virtual" is an in-memory bus that records every frame.
package transport

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// Identifier limits for standard (11-bit) and extended (29-bit) frames.
const (
	MaxStandardID uint32 = 0x7FF
	MaxExtendedID uint32 = 0x1FFFFFFF
	MaxPayload           = 8
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("transport closed")

	// ErrInvalidFrame is returned when an identifier or payload does not fit a classic CAN frame.
	ErrInvalidFrame = errors.New("invalid frame")
)

// Bitrates lists the supported nominal bitrates in bit/s.
var Bitrates = []int{125000, 250000, 500000, 1000000}

// Bus is a transport that holds an open interface.
type Bus interface {
	ports.Transport
	io.Closer
}

// OpenFunc opens an interface on channel at the given bitrate.
type OpenFunc func(channel string, bitrate int) (Bus, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]OpenFunc)
)

// Register makes an interface available under name. It is meant to be
// called from init functions; registering a name twice replaces it.
func Register(name string, open OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = open
}

// Open opens the named interface.
func Open(name, channel string, bitrate int) (Bus, error) {
	registryMu.RLock()
	open, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", domain.ErrUnknownInterface, name, Names())
	}
	if !ValidBitrate(bitrate) {
		return nil, fmt.Errorf("%w: unsupported bitrate %d", domain.ErrInvalidConfig, bitrate)
	}
	return open(channel, bitrate)
}

// Names returns the registered interface names in order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidBitrate reports whether b is one of Bitrates.
func ValidBitrate(b int) bool {
	for _, r := range Bitrates {
		if r == b {
			return true
		}
	}
	return false
}

// ValidateFrame checks that id fits the addressing mode and payload fits
// a classic CAN frame.
func ValidateFrame(id uint32, payload []byte, isExtended bool) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: payload of %d bytes", ErrInvalidFrame, len(payload))
	}
	limit := MaxStandardID
	if isExtended {
		limit = MaxExtendedID
	}
	if id > limit {
		return fmt.Errorf("%w: id 0x%X exceeds 0x%X", ErrInvalidFrame, id, limit)
	}
	return nil
}
