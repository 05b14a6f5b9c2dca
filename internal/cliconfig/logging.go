package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/clusterbus/internal/adapters/log"
)

// Logger returns a console logger on stderr at the given level. Unknown
// levels fall back to info.
func Logger(level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	a, err := logAdapter.NewZerologAdapterTo(out, level)
	if err != nil {
		a, _ = logAdapter.NewZerologAdapterTo(out, "info")
	}
	return a.Logger()
}
