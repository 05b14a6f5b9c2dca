package catalogfile

import (
	"fmt"

	"go.einride.tech/can/pkg/dbc"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// independentSignalsMessage holds signals not attached to any real message.
const independentSignalsMessage = "VECTOR__INDEPENDENT_SIG_MSG"

// ParseDBC builds a catalog from DBC source. name is used in parse errors.
// Multiplexed signals are skipped; a DBC minimum and maximum of both zero
// means the limits are undeclared.
func ParseDBC(name string, data []byte) (*domain.Catalog, error) {
	p := dbc.NewParser(name, data)
	if err := p.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	var specs []domain.FrameSpec
	for _, def := range p.Defs() {
		msg, ok := def.(*dbc.MessageDef)
		if !ok || string(msg.Name) == independentSignalsMessage {
			continue
		}
		if msg.Size > 8 {
			return nil, fmt.Errorf("%w: message %s is %d bytes, classic CAN carries at most 8", domain.ErrInvalidCatalog, msg.Name, msg.Size)
		}

		fs := domain.FrameSpec{
			ID:       msg.MessageID.ToCAN(),
			Name:     string(msg.Name),
			Extended: msg.MessageID.IsExtended(),
			Length:   uint8(msg.Size),
		}
		for _, sd := range msg.Signals {
			if sd.IsMultiplexed {
				continue
			}
			fs.Signals = append(fs.Signals, signalSpec(sd))
		}
		specs = append(specs, fs)
	}
	return domain.NewCatalog(specs)
}

func signalSpec(sd dbc.SignalDef) domain.SignalSpec {
	ss := domain.SignalSpec{
		Name:      string(sd.Name),
		StartBit:  uint8(sd.StartBit),
		BitLength: uint8(sd.Size),
		ByteOrder: domain.LittleEndian,
		Signed:    sd.IsSigned,
		Scale:     sd.Factor,
		Offset:    sd.Offset,
		Unit:      sd.Unit,
	}
	if sd.IsBigEndian {
		ss.ByteOrder = domain.BigEndian
	}
	if sd.Minimum != 0 || sd.Maximum != 0 {
		lo, hi := sd.Minimum, sd.Maximum
		ss.DeclaredMin, ss.DeclaredMax = &lo, &hi
	}
	return ss
}
