// main.go - triplex server binary.
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

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"

	"github.com/triplex-sh/triplex/server"
)

func main() {
	cfgFile := flag.String("f", "", "Path to the server config file.")
	address := flag.String("a", "", "Listener address override.")
	logLevel := flag.String("log_level", "", "Log level override: ERROR, WARNING, NOTICE, INFO, DEBUG.")
	version := flag.Bool("version", false, "Print the version and exit.")
	flag.Parse()

	if *version {
		fmt.Printf("triplexd %s\n", versioninfo.Short())
		return
	}

	cfg, err := server.LoadFile(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err = cfg.FixupAndValidate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	s, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	s.Shutdown()
}
