//go:build linux

package transport

import (
	"fmt"

	"github.com/brutella/can"
	"golang.org/x/sys/unix"
)

func init() {
	Register("socketcan", func(channel string, bitrate int) (Bus, error) {
		return OpenSocketCAN(channel)
	})
}

// SocketCAN sends frames on a Linux CAN network interface. The bitrate is
// a property of the link (ip link set can0 type can bitrate ...) and is not
// set per socket.
type SocketCAN struct {
	channel string
	bus     *can.Bus
}

// OpenSocketCAN opens a raw CAN socket on the named interface, e.g. "can0" or "vcan0".
func OpenSocketCAN(channel string) (*SocketCAN, error) {
	bus, err := can.NewBusForInterfaceWithName(channel)
	if err != nil {
		return nil, fmt.Errorf("open socketcan %s: %w", channel, err)
	}
	return &SocketCAN{channel: channel, bus: bus}, nil
}

// Send writes one frame. Extended identifiers carry CAN_EFF_FLAG.
func (s *SocketCAN) Send(frameID uint32, payload []byte, isExtended bool) error {
	if err := ValidateFrame(frameID, payload, isExtended); err != nil {
		return err
	}
	f := can.Frame{ID: frameID & unix.CAN_SFF_MASK, Length: uint8(len(payload))}
	if isExtended {
		f.ID = (frameID & unix.CAN_EFF_MASK) | unix.CAN_EFF_FLAG
	}
	copy(f.Data[:], payload)
	if err := s.bus.Publish(f); err != nil {
		return fmt.Errorf("socketcan %s: %w", s.channel, err)
	}
	return nil
}

// Close releases the socket.
func (s *SocketCAN) Close() error {
	return s.bus.Disconnect()
}
