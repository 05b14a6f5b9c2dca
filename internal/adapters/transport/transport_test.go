package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/clusterbus/internal/domain"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		iface   string
		bitrate int
		wantErr error
	}{
		{"virtual", "virtual", 500000, nil},
		{"unknown interface", "pcan", 500000, domain.ErrUnknownInterface},
		{"unsupported bitrate", "virtual", 33333, domain.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, err := Open(tt.iface, "vcan0", tt.bitrate)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer bus.Close()
			if _, ok := bus.(*VirtualBus); !ok {
				t.Errorf("Open() = %T, want *VirtualBus", bus)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()
	want := map[string]bool{"socketcan": false, "virtual": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("Names() = %v, missing %s", names, n)
		}
	}
}

func TestValidateFrame(t *testing.T) {
	tests := []struct {
		name     string
		id       uint32
		payload  []byte
		extended bool
		wantErr  bool
	}{
		{"standard max", 0x7FF, make([]byte, 8), false, false},
		{"standard too large", 0x800, nil, false, true},
		{"extended", 0x18FEF100, []byte{1}, true, false},
		{"extended too large", 0x20000000, nil, true, true},
		{"payload too long", 0x100, make([]byte, 9), false, true},
		{"empty payload", 0x100, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrame(tt.id, tt.payload, tt.extended)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("ValidateFrame() error = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestVirtualBus_RecordsFrames(t *testing.T) {
	bus := NewVirtualBus(2)

	payload := []byte{0x01, 0x02}
	for id := uint32(1); id <= 3; id++ {
		if err := bus.Send(id, payload, false); err != nil {
			t.Fatalf("Send(%d) error = %v", id, err)
		}
	}
	payload[0] = 0xFF

	frames := bus.Frames()
	if len(frames) != 2 || frames[0].ID != 2 || frames[1].ID != 3 {
		t.Fatalf("Frames() = %+v, want ids 2 and 3", frames)
	}
	if frames[1].Data[0] != 0x01 {
		t.Error("recorded payload aliases the caller's slice")
	}

	if err := bus.Send(0x800, nil, false); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Send(0x800) error = %v, want ErrInvalidFrame", err)
	}
}

func TestVirtualBus_Subscribe(t *testing.T) {
	bus := NewVirtualBus(0)
	ch, cancel := bus.Subscribe(4)

	if err := bus.Send(0x18FEF100, []byte{7}, true); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case f := <-ch:
		if f.ID != 0x18FEF100 || !f.Extended || f.Data[0] != 7 {
			t.Errorf("received %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel open after cancel")
	}
	if err := bus.Send(0x1, nil, false); err != nil {
		t.Errorf("Send() after unsubscribe error = %v", err)
	}
}

func TestVirtualBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewVirtualBus(0)
	_, cancel := bus.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Send(0x10, nil, false)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full subscriber")
	}
	if got := len(bus.Frames()); got != 10 {
		t.Errorf("Frames() = %d, want 10", got)
	}
}

func TestVirtualBus_Close(t *testing.T) {
	bus := NewVirtualBus(0)
	ch, cancel := bus.Subscribe(1)

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel open after Close")
	}
	cancel()

	if err := bus.Send(0x1, nil, false); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close error = %v, want ErrClosed", err)
	}
	late, _ := bus.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("Subscribe() after Close returned an open channel")
	}
}
