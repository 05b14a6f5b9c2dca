// Package clusterbus transmits instrument-cluster signals onto a CAN bus,
// one periodic worker per frame.
//
// Example usage:
//
//	cat, err := clusterbus.LoadCatalog("cluster.dbc")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	bus, err := clusterbus.OpenTransport("socketcan", "can0", 500000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bus.Close()
//	e, err := clusterbus.New(cat, bus, clusterbus.WithCycleTime(50*time.Millisecond))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Shutdown()
//	_ = e.Activate("EngineSpeed", clusterbus.Auto())
package clusterbus

import (
	"github.com/bft-labs/clusterbus/internal/adapters/catalogfile"
	"github.com/bft-labs/clusterbus/internal/adapters/codec"
	"github.com/bft-labs/clusterbus/internal/adapters/transport"
	"github.com/bft-labs/clusterbus/internal/app"
	"github.com/bft-labs/clusterbus/internal/domain"
	"github.com/bft-labs/clusterbus/internal/ports"
)

// Engine drives periodic transmission of catalog signals.
type Engine = app.Engine

// Option configures optional behavior of an Engine.
type Option = app.Option

// Catalog types.
type (
	Catalog    = domain.Catalog
	Frame      = domain.Frame
	Signal     = domain.Signal
	FrameSpec  = domain.FrameSpec
	SignalSpec = domain.SignalSpec
	ByteOrder  = domain.ByteOrder
)

// Control and status types.
type (
	Mode        = domain.Mode
	SignalState = domain.SignalState
	WorkerState = domain.WorkerState
)

// Port interfaces an application may implement.
type (
	Logger       = ports.Logger
	Field        = ports.Field
	Transport    = ports.Transport
	EventHandler = ports.EventHandler
)

// Bus is a transport holding an open interface.
type Bus = transport.Bus

// VirtualBus is an in-memory bus that records every frame.
type VirtualBus = transport.VirtualBus

// Typed errors, checked with errors.As.
type (
	ValidationError  = domain.ValidationError
	EncodeError      = domain.EncodeError
	TransportError   = domain.TransportError
	SupervisionError = domain.SupervisionError
)

// Sentinel errors, checked with errors.Is.
var (
	ErrUnknownSignal    = domain.ErrUnknownSignal
	ErrInvalidCatalog   = domain.ErrInvalidCatalog
	ErrEngineClosed     = domain.ErrEngineClosed
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrUnknownInterface = domain.ErrUnknownInterface
)

// Byte orders and worker states.
const (
	LittleEndian = domain.LittleEndian
	BigEndian    = domain.BigEndian

	WorkerIdle     = domain.WorkerIdle
	WorkerRunning  = domain.WorkerRunning
	WorkerStopping = domain.WorkerStopping
)

// Options.
var (
	WithLogger       = app.WithLogger
	WithEventHandler = app.WithEventHandler
	WithCycleTime    = app.WithCycleTime
	WithGraceTimeout = app.WithGraceTimeout
)

// New creates an engine that packs frames with the standard bit layout codec.
func New(catalog *Catalog, t Transport, opts ...Option) (*Engine, error) {
	return app.New(catalog, t, codec.NewEncoder(), opts...)
}

// NewCatalog builds a catalog from frame descriptions.
func NewCatalog(specs []FrameSpec) (*Catalog, error) {
	return domain.NewCatalog(specs)
}

// LoadCatalog reads a .dbc, .yaml or .yml catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	return catalogfile.Load(path)
}

// OpenTransport opens a registered interface ("socketcan" or "virtual").
func OpenTransport(name, channel string, bitrate int) (Bus, error) {
	return transport.Open(name, channel, bitrate)
}

// NewVirtualBus creates an in-memory bus keeping at most history frames.
func NewVirtualBus(history int) *VirtualBus {
	return transport.NewVirtualBus(history)
}

// Auto returns the auto-increment mode.
func Auto() Mode { return domain.Auto() }

// Fixed returns a constant-value mode.
func Fixed(v float64) Mode { return domain.Fixed(v) }

// ParseMode interprets "A" as auto mode and a number as fixed mode.
func ParseMode(text string) (Mode, error) { return domain.ParseMode(text) }

// Decode unpacks the physical signal values of a frame payload.
func Decode(frame *Frame, payload []byte) (map[string]float64, error) {
	return codec.Decode(frame, payload)
}
