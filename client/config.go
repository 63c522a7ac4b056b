// config.go - client configuration.
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

package client

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/triplex-sh/triplex/core/log"
)

// DefaultAddress is the server address used when none is configured.
const DefaultAddress = "127.0.0.1:25105"

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

// Config is the triplex client configuration.
type Config struct {
	// Address is the server's TCP address.
	Address string

	// TripleTransport must match the server's setting.
	TripleTransport bool

	Logging *Logging
}

// FixupAndValidate applies defaults and validates the configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "ERROR"
	}
	return log.ValidateLogLevel(cfg.Logging.Level)
}

// LoadFile loads and parses the configuration at path.  An empty path
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := new(Config)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err = toml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
