// log.go - logging backend.
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

// Package log provides a rudimentary logging system.
package log

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

var logFormat = logging.MustStringFormatter("%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")

// Backend is a log backend.
type Backend struct {
	sync.Mutex

	backend logging.LeveledBackend
	w       io.Writer
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	b.Lock()
	defer b.Unlock()

	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

// New initializes a logging backend, logging to the provided file f, at
// level specified by level.  If f is the empty string, logging will be
// done to os.Stderr.  If disable is set, logging will be disabled entirely.
func New(f string, level string, disable bool) (*Backend, error) {
	lvl, err := logLevelFromString(level)
	if err != nil {
		return nil, err
	}

	b := new(Backend)
	switch {
	case disable:
		b.w = ioutil.Discard
	case f == "":
		b.w = os.Stderr
	default:
		flags := os.O_CREATE | os.O_APPEND | os.O_WRONLY
		w, err := os.OpenFile(f, flags, 0600)
		if err != nil {
			return nil, fmt.Errorf("log: failed to open log file: %v", err)
		}
		b.w = w
	}

	base := logging.NewLogBackend(b.w, "", 0)
	formatted := logging.NewBackendFormatter(base, logFormat)
	b.backend = logging.AddModuleLevel(formatted)
	b.backend.SetLevel(lvl, "")

	return b, nil
}

func logLevelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	}
	return logging.ERROR, fmt.Errorf("log: invalid level: '%v'", l)
}

// ValidateLogLevel returns nil iff level is a valid log level.
func ValidateLogLevel(level string) error {
	_, err := logLevelFromString(level)
	return err
}
