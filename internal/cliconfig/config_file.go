package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Interface    string   `toml:"interface"`
	Channel      string   `toml:"channel"`
	Bitrate      int      `toml:"bitrate"`
	Catalog      string   `toml:"catalog"`
	CycleTime    string   `toml:"cycle_time"`
	GraceTimeout string   `toml:"grace_timeout"`
	LogLevel     string   `toml:"log_level"`
	Watch        *bool    `toml:"watch"`
	Signals      []string `toml:"signals"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.clusterbus/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".clusterbus", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("interface", fc.Interface, &cfg.Interface)
	s.setString("channel", fc.Channel, &cfg.Channel)
	s.setString("catalog", fc.Catalog, &cfg.Catalog)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setInt("bitrate", fc.Bitrate, &cfg.Bitrate)

	if err := s.setDuration("cycle-time", fc.CycleTime, &cfg.CycleTime); err != nil {
		return err
	}
	if err := s.setDuration("grace-timeout", fc.GraceTimeout, &cfg.GraceTimeout); err != nil {
		return err
	}

	s.setBool("watch", fc.Watch, &cfg.Watch)
	s.setStrings("signal", fc.Signals, &cfg.Signals)

	return nil
}

// ResolveCatalogPath makes a relative catalog path relative to the
// directory of the config file it came from.
func ResolveCatalogPath(catalog, configPath string) string {
	if catalog == "" || filepath.IsAbs(catalog) || configPath == "" {
		return catalog
	}
	return filepath.Join(filepath.Dir(configPath), catalog)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
