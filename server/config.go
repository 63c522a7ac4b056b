// config.go - server configuration.
// Copyright (C) 2025  The triplex Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package server

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/triplex-sh/triplex/core/log"
)

const (
	// DefaultAddress is the listener address used when none is
	// configured.
	DefaultAddress = "0.0.0.0:25105"

	defaultMaxConnections = 64
	defaultLogLevel       = "NOTICE"
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (l *Logging) validate() error {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	return log.ValidateLogLevel(l.Level)
}

// Metrics is the Prometheus metrics configuration.
type Metrics struct {
	// Enable enables the metrics endpoint.
	Enable bool

	// Address is the HTTP listener address for the metrics endpoint.
	Address string
}

// Audit is the command audit trail configuration.
type Audit struct {
	// Enable enables the audit trail.
	Enable bool

	// File is the bbolt database path.
	File string
}

// Config is the triplexd configuration.
type Config struct {
	// Address is the TCP listener address.
	Address string

	// MaxConnections caps concurrently accepted connections.
	MaxConnections int

	// MaxFrameSize bounds incoming frame payloads in bytes; 0 selects
	// the wire package default.
	MaxFrameSize uint32

	// ReadTimeout is the per-read stream deadline in seconds; 0
	// disables it.
	ReadTimeout int

	// TripleTransport enables the composed three cipher transport for
	// application frames.  Clients must be configured identically.
	TripleTransport bool

	Logging *Logging
	Metrics *Metrics
	Audit   *Audit
}

func (cfg *Config) readTimeout() time.Duration {
	return time.Duration(cfg.ReadTimeout) * time.Second
}

// FixupAndValidate applies defaults and validates the configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaultMaxConnections
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("config: ReadTimeout must not be negative")
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &Metrics{}
	}
	if cfg.Metrics.Enable && cfg.Metrics.Address == "" {
		return fmt.Errorf("config: Metrics.Address is required when metrics are enabled")
	}
	if cfg.Audit == nil {
		cfg.Audit = &Audit{}
	}
	if cfg.Audit.Enable && cfg.Audit.File == "" {
		return fmt.Errorf("config: Audit.File is required when the audit trail is enabled")
	}
	return nil
}

// Load parses a TOML configuration.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads and parses the configuration at path.  An empty path
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		cfg := new(Config)
		if err := cfg.FixupAndValidate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
