// main.go - triplex client binary.
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
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/carlmjohnson/versioninfo"

	"github.com/triplex-sh/triplex/client"
)

func main() {
	cfgFile := flag.String("f", "", "Path to the client config file.")
	address := flag.String("a", "", "Server address override.")
	version := flag.Bool("version", false, "Print the version and exit.")
	flag.Parse()

	if *version {
		fmt.Printf("triplex %s\n", versioninfo.Short())
		return
	}

	cfg, err := client.LoadFile(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Address = *address
	}

	c, err := client.New(cfg)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			fmt.Fprintln(os.Stderr, "Server is not running.")
		} else {
			fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		}
		os.Exit(1)
	}
	defer c.Close()

	if err = c.Run(); err != nil {
		os.Exit(1)
	}
}
