// client.go - interactive triplex client.
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

// Package client provides the interactive triplex client: a readline
// driven input loop paired with one wire session.  Each non-empty line is
// tokenised into a verb and parameters and either executed locally or
// shipped to the server, whose answer is rendered per verb.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/chzyer/readline"
	"gopkg.in/op/go-logging.v1"

	"github.com/triplex-sh/triplex/core/log"
	"github.com/triplex-sh/triplex/core/wire"
	"github.com/triplex-sh/triplex/core/wire/commands"
)

// Client pairs a wire session with an interactive line editor.
type Client struct {
	cfg  *Config
	log  *logging.Logger
	side *side

	session *wire.Session
}

// New connects to the configured server and completes the handshake.
func New(cfg *Config) (*Client, error) {
	logBackend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:  cfg,
		log:  logBackend.GetLogger("client"),
		side: newSide(),
	}

	conn, err := net.Dial("tcp", cfg.Address)
	if err != nil {
		return nil, err
	}
	c.session = wire.NewSession(conn, wire.SideClient, wire.SessionConfig{
		TripleTransport: cfg.TripleTransport,
	}, c.log)
	if err = c.session.Initialize(); err != nil {
		return nil, fmt.Errorf("client: handshake failed: %v", err)
	}
	fmt.Printf("Connected to server: %v\n", conn.RemoteAddr())

	c.learnRemoteIdentity()
	return c, nil
}

// Close releases the session.
func (c *Client) Close() {
	c.session.Close()
}

// learnRemoteIdentity asks the peer who and where it is, for the prompt.
// Failures are non-fatal; the prompt falls back to the local identity.
func (c *Client) learnRemoteIdentity() {
	host, err := c.serveRemote("exe", []string{"uname", "-n"})
	if err != nil || !host.IsOK() || len(host.Data) == 0 {
		return
	}
	who, err := c.serveRemote("exe", []string{"whoami"})
	if err != nil || !who.IsOK() || len(who.Data) == 0 {
		return
	}
	c.side.setRemote(who.Data[0], host.Data[0])
}

// Run drives the interactive loop until the user enters an empty line or
// closes the input, or the session dies.
func (c *Client) Run() error {
	rl, err := readline.New(c.side.prompt())
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		rl.SetPrompt(c.side.prompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			// An empty line ends the program.
			return nil
		}

		tokens := strings.Fields(line)
		command, params := tokens[0], tokens[1:]

		switch command {
		case ":remote":
			c.side.remote = c.side.remoteHost != ""
			if !c.side.remote {
				errColor.Println("remote identity unknown")
			}
			continue
		case ":local":
			c.side.setLocal()
			continue
		}

		if c.side.remote {
			ans, err := c.serveRemote(command, params)
			if err != nil {
				errColor.Printf("connection failed: %v\n", err)
				return err
			}
			c.renderAnswer(ans)
		} else {
			c.serveLocal(command, params)
		}
	}
}

// serveRemote ships one request and waits for its answer.
func (c *Client) serveRemote(command string, params []string) (*commands.Answer, error) {
	req := commands.NewRequest(command, params)
	if err := c.session.SendRequest(req); err != nil {
		return nil, err
	}
	return c.session.ReadAnswer()
}

// serveLocal executes a line on this machine.  cd and pwd touch the
// process state directly; everything else is handed to the local system.
func (c *Client) serveLocal(command string, params []string) {
	switch command {
	case "cd":
		path := "~"
		if len(params) > 0 {
			path = params[0]
		}
		if strings.HasPrefix(path, "~") {
			if u, err := user.Current(); err == nil {
				path = u.HomeDir + path[1:]
			}
		}
		if err := os.Chdir(path); err != nil {
			errColor.Printf("cd: %v\n", err)
		}
	case "pwd":
		wd, err := os.Getwd()
		if err != nil {
			errColor.Printf("pwd: %v\n", err)
			return
		}
		fmt.Println(wd)
	default:
		cmd := exec.Command(command, params...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				errColor.Printf("%s: %v\n", command, err)
			}
		}
	}
}
