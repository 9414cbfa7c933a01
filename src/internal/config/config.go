package config

import (
	"fmt"
	"net"
)

// Config is the full process configuration, loaded once at startup and
// immutable afterwards.
type Config struct {
	Logging LogConfig    `toml:"logging"`
	Syslog  SyslogConfig `toml:"syslog"`
	Server  ServerConfig `toml:"server"`
}

// LogConfig configures the diagnostic logger (not the delivered access
// lines).
type LogConfig struct {
	// Output mode: "stdout", "stderr", "file", "none"
	Output string `toml:"output"`

	// Log level: "debug", "info", "warn", "error"
	Level string `toml:"level"`

	// Directory for log files when Output is "file"
	Directory string `toml:"directory"`

	// Base name for log files
	Name string `toml:"name"`
}

// SyslogConfig identifies the sink and the remote collector. Unset keys
// fall back to the delivery client's defaults; set keys win per key.
type SyslogConfig struct {
	// Sink identifier
	Name string `toml:"name"`

	// Hostname stamped into each packet; defaults to os.Hostname
	Host string `toml:"host"`

	// Process/node identifier used as the syslog tag
	Ident string `toml:"ident"`

	// Log facility, e.g. "local0".."local7", "daemon"
	Facility string `toml:"facility"`

	// Collector address
	IP   string `toml:"ip"`
	Port int    `toml:"port"`
}

// ServerConfig configures the access-logged HTTP server.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// Options returns the syslog config as the delivery client's options map,
// carrying only the keys the operator actually set.
func (s SyslogConfig) Options() map[string]any {
	options := make(map[string]any)
	if s.Name != "" {
		options["name"] = s.Name
	}
	if s.Host != "" {
		options["host"] = s.Host
	}
	if s.Ident != "" {
		options["ident"] = s.Ident
	}
	if s.Facility != "" {
		options["facility"] = s.Facility
	}
	if s.IP != "" {
		options["ip"] = s.IP
	}
	if s.Port != 0 {
		options["port"] = s.Port
	}
	return options
}

func (c *Config) validate() error {
	validOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true, "none": true,
	}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid log output mode: %s", c.Logging.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Syslog.Port < 0 || c.Syslog.Port > 65535 {
		return fmt.Errorf("invalid syslog port: %d", c.Syslog.Port)
	}
	if c.Syslog.IP != "" && net.ParseIP(c.Syslog.IP) == nil {
		return fmt.Errorf("invalid syslog collector address: %s", c.Syslog.IP)
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}
