package app

import (
	"sync"

	"github.com/bft-labs/clusterbus/internal/ports"
)

// lockedTransport serializes every call into the underlying transport.
type lockedTransport struct {
	mu    sync.Mutex
	inner ports.Transport
}

func (t *lockedTransport) Send(frameID uint32, payload []byte, isExtended bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.Send(frameID, payload, isExtended)
}
