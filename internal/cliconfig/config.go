package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	logAdapter "github.com/bft-labs/clusterbus/internal/adapters/log"
	"github.com/bft-labs/clusterbus/internal/adapters/transport"
	"github.com/bft-labs/clusterbus/internal/app"
	"github.com/bft-labs/clusterbus/internal/domain"
)

// Defaults for the bus connection.
const (
	DefaultInterface = "virtual"
	DefaultChannel   = "vcan0"
	DefaultBitrate   = 500000
)

// Config holds CLI configuration for clusterbus.
type Config struct {
	Interface string
	Channel   string
	Bitrate   int

	Catalog string

	CycleTime    time.Duration
	GraceTimeout time.Duration

	LogLevel string
	Watch    bool

	// Signals are NAME=MODE requests activated at startup.
	Signals []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Interface:    DefaultInterface,
		Channel:      DefaultChannel,
		Bitrate:      DefaultBitrate,
		CycleTime:    app.DefaultCycleTime,
		GraceTimeout: app.DefaultGraceTimeout,
		LogLevel:     "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	known := false
	for _, name := range transport.Names() {
		if name == c.Interface {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: interface %q (available: %s)", domain.ErrUnknownInterface, c.Interface, strings.Join(transport.Names(), ", "))
	}
	if c.Channel == "" {
		return fmt.Errorf("%w: channel is required", domain.ErrInvalidConfig)
	}
	if !transport.ValidBitrate(c.Bitrate) {
		return fmt.Errorf("%w: bitrate %d not in %v", domain.ErrInvalidConfig, c.Bitrate, transport.Bitrates)
	}
	if c.Catalog == "" {
		return fmt.Errorf("%w: catalog is required", domain.ErrInvalidConfig)
	}
	if c.CycleTime < time.Millisecond {
		return fmt.Errorf("%w: cycle time must be at least 1ms", domain.ErrInvalidConfig)
	}
	if c.GraceTimeout <= 0 {
		return fmt.Errorf("%w: grace timeout must be positive", domain.ErrInvalidConfig)
	}
	if _, err := logAdapter.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	for _, s := range c.Signals {
		if _, err := ParseSignalRequest(s); err != nil {
			return err
		}
	}
	return nil
}

// SignalRequest is a signal to activate at startup.
type SignalRequest struct {
	Name string
	Mode domain.Mode
}

// ParseSignalRequest parses NAME or NAME=MODE, where MODE is "A" or a number.
// A bare NAME selects auto mode.
func ParseSignalRequest(arg string) (SignalRequest, error) {
	name, mode, _ := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return SignalRequest{}, &domain.ValidationError{Input: arg, Reason: "expected NAME=A or NAME=<value>"}
	}
	m, err := domain.ParseMode(mode)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			ve.Signal = name
		}
		return SignalRequest{}, err
	}
	return SignalRequest{Name: name, Mode: m}, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setStringsFromString splits a comma-separated list.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
