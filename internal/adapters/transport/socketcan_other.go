//go:build !linux

package transport

import (
	"errors"
	"runtime"
)

func init() {
	Register("socketcan", func(channel string, bitrate int) (Bus, error) {
		return nil, errors.New("socketcan is not supported on " + runtime.GOOS)
	})
}
