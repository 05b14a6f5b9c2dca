package cliconfig

import "os"

// ApplyEnvConfig applies CLUSTERBUS_* environment variables to cfg.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("interface", os.Getenv("CLUSTERBUS_INTERFACE"), &cfg.Interface)
	s.setString("channel", os.Getenv("CLUSTERBUS_CHANNEL"), &cfg.Channel)
	s.setString("catalog", os.Getenv("CLUSTERBUS_CATALOG"), &cfg.Catalog)
	s.setString("log-level", os.Getenv("CLUSTERBUS_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("bitrate", os.Getenv("CLUSTERBUS_BITRATE"), &cfg.Bitrate); err != nil {
		return err
	}
	if err := s.setDuration("cycle-time", os.Getenv("CLUSTERBUS_CYCLE_TIME"), &cfg.CycleTime); err != nil {
		return err
	}
	if err := s.setDuration("grace-timeout", os.Getenv("CLUSTERBUS_GRACE_TIMEOUT"), &cfg.GraceTimeout); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("CLUSTERBUS_WATCH"), &cfg.Watch)
	s.setStringsFromString("signal", os.Getenv("CLUSTERBUS_SIGNALS"), &cfg.Signals)

	return nil
}
