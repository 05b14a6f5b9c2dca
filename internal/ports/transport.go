package ports

// Transport puts one frame on the bus.
// The engine serializes calls, so implementations need not be safe for
// concurrent use.
type Transport interface {
	// Send transmits payload under frameID. isExtended selects 29-bit addressing.
	Send(frameID uint32, payload []byte, isExtended bool) error
}
