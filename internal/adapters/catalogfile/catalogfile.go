// Package catalogfile builds signal catalogs from description files.
//
// Two formats are supported: Vector DBC files (parsed with
// go.einride.tech/can/pkg/dbc) and a small YAML schema for hand-written
// test catalogs. Load picks the format from the file extension.
package catalogfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// Load reads path and builds a catalog. Files ending in .dbc are parsed as
// DBC; .yaml and .yml as YAML.
func Load(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dbc":
		return ParseDBC(path, data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: unsupported catalog file %q (want .dbc, .yaml or .yml)", domain.ErrInvalidCatalog, path)
	}
}
