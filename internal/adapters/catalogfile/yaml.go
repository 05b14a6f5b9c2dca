package catalogfile

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// yamlCatalog is the on-disk YAML schema:
//
//	frames:
//	  - id: 0x1A0
//	    name: Cluster
//	    extended: false
//	    length: 8
//	    signals:
//	      - name: EngineSpeed
//	        start: 0
//	        length: 16
//	        byte_order: little_endian
//	        signed: false
//	        scale: 0.25
//	        offset: 0
//	        min: 0
//	        max: 8000
//	        unit: rpm
type yamlCatalog struct {
	Frames []yamlFrame `yaml:"frames"`
}

type yamlFrame struct {
	ID       uint32       `yaml:"id"`
	Name     string       `yaml:"name"`
	Extended bool         `yaml:"extended"`
	Length   uint8        `yaml:"length"`
	Signals  []yamlSignal `yaml:"signals"`
}

type yamlSignal struct {
	Name      string   `yaml:"name"`
	Start     uint8    `yaml:"start"`
	Length    uint8    `yaml:"length"`
	ByteOrder string   `yaml:"byte_order"`
	Signed    bool     `yaml:"signed"`
	Scale     *float64 `yaml:"scale"`
	Offset    float64  `yaml:"offset"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Unit      string   `yaml:"unit"`
}

// ParseYAML builds a catalog from YAML source. Unknown keys are rejected.
// A frame without a length defaults to 8 bytes; a signal without a scale
// defaults to 1.
func ParseYAML(data []byte) (*domain.Catalog, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	specs := make([]domain.FrameSpec, 0, len(doc.Frames))
	for _, yf := range doc.Frames {
		fs := domain.FrameSpec{
			ID:       yf.ID,
			Name:     yf.Name,
			Extended: yf.Extended,
			Length:   yf.Length,
		}
		if fs.Length == 0 {
			fs.Length = 8
		}
		if !fs.Extended && fs.ID > 0x7FF {
			return nil, fmt.Errorf("%w: frame 0x%X needs extended addressing", domain.ErrInvalidCatalog, fs.ID)
		}
		for _, ys := range yf.Signals {
			ss, err := ys.spec()
			if err != nil {
				return nil, err
			}
			fs.Signals = append(fs.Signals, ss)
		}
		specs = append(specs, fs)
	}
	return domain.NewCatalog(specs)
}

func (ys yamlSignal) spec() (domain.SignalSpec, error) {
	ss := domain.SignalSpec{
		Name:        ys.Name,
		StartBit:    ys.Start,
		BitLength:   ys.Length,
		Signed:      ys.Signed,
		Scale:       1,
		Offset:      ys.Offset,
		DeclaredMin: ys.Min,
		DeclaredMax: ys.Max,
		Unit:        ys.Unit,
	}
	if ys.Scale != nil {
		ss.Scale = *ys.Scale
	}
	switch ys.ByteOrder {
	case "", "little_endian", "intel":
		ss.ByteOrder = domain.LittleEndian
	case "big_endian", "motorola":
		ss.ByteOrder = domain.BigEndian
	default:
		return ss, fmt.Errorf("%w: signal %s has unknown byte order %q", domain.ErrInvalidCatalog, ys.Name, ys.ByteOrder)
	}
	return ss, nil
}
