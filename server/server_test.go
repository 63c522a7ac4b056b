// server_test.go - end to end server tests.
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
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triplex-sh/triplex/core/log"
	"github.com/triplex-sh/triplex/core/wire"
	"github.com/triplex-sh/triplex/core/wire/commands"
	"github.com/triplex-sh/triplex/server/internal/audit"
)

func testServer(t *testing.T, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Address = "127.0.0.1:0"
	if cfg.Logging == nil {
		cfg.Logging = &Logging{Disable: true}
	}
	require.NoError(t, cfg.FixupAndValidate())

	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func dialSession(t *testing.T, s *Server, cfg wire.SessionConfig) *wire.Session {
	logBackend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)

	session := wire.NewSession(conn, wire.SideClient, cfg, logBackend.GetLogger("client"))
	require.NoError(t, session.Initialize())
	return session
}

func TestHappyPath(t *testing.T) {
	s := testServer(t, nil)
	defer s.Shutdown()

	session := dialSession(t, s, wire.SessionConfig{})
	defer session.Close()

	require.NoError(t, session.SendRequest(commands.NewRequest("pwd", nil)))
	ans, err := session.ReadAnswer()
	require.NoError(t, err)
	require.True(t, ans.IsOK())
	require.Equal(t, "pwd", ans.Cmd)
	require.Equal(t, uint64(2), ans.ID)
	require.Len(t, ans.Data, 1)
	require.True(t, filepath.IsAbs(ans.Data[0]))
}

func TestExecutorErrorKeepsSession(t *testing.T) {
	s := testServer(t, nil)
	defer s.Shutdown()

	session := dialSession(t, s, wire.SessionConfig{})
	defer session.Close()

	require.NoError(t, session.SendRequest(commands.NewRequest("xyz", nil)))
	ans, err := session.ReadAnswer()
	require.NoError(t, err)
	require.False(t, ans.IsOK())
	require.Equal(t, commands.CodeNoCommand, ans.Code)
	require.Empty(t, ans.Cmd)

	cerr, err := commands.ErrorFromJSON(ans.Message)
	require.NoError(t, err)
	require.Equal(t, commands.SrcApp, cerr.Src)
	require.Equal(t, "no such command", cerr.Msg)

	// The session survives and the next exchange carries the next ids.
	require.NoError(t, session.SendRequest(commands.NewRequest("pwd", nil)))
	ans, err = session.ReadAnswer()
	require.NoError(t, err)
	require.True(t, ans.IsOK())
	require.Equal(t, uint64(4), ans.ID)
}

func TestBadClientIDDropsConnection(t *testing.T) {
	s := testServer(t, nil)
	defer s.Shutdown()

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// 136 zero bytes (an IV plus 128 bytes), framed but never produced by
	// encryption, so they do not decrypt to the bundled identity; the
	// server must drop us without answering.
	require.NoError(t, wire.WriteFrame(conn, make([]byte, 136)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err, "server must close without sending a handshake frame")
}

func TestAuditTrail(t *testing.T) {
	auditFile := filepath.Join(t.TempDir(), "audit.db")
	s := testServer(t, &Config{
		Audit: &Audit{Enable: true, File: auditFile},
	})

	session := dialSession(t, s, wire.SessionConfig{})
	require.NoError(t, session.SendRequest(commands.NewRequest("pwd", nil)))
	_, err := session.ReadAnswer()
	require.NoError(t, err)
	session.Close()

	// Shutdown drains the audit queue.
	s.Shutdown()

	logBackend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)
	// Reopen the database directly to inspect it.
	reopened, err := audit.New(auditFile, logBackend.GetLogger("audit"))
	require.NoError(t, err)
	defer reopened.Shutdown()

	records, err := reopened.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "pwd", records[0].Verb)
	require.Equal(t, int32(0), records[0].Code)
}

func TestShutdownDrainsBlockedWorkers(t *testing.T) {
	s := testServer(t, nil)

	session := dialSession(t, s, wire.SessionConfig{})
	defer session.Close()

	// The connection worker is now blocked reading the next request.
	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not drain the blocked worker")
	}
}

func TestConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Load([]byte(""))
	require.NoError(err)
	require.Equal(DefaultAddress, cfg.Address)
	require.Equal(defaultMaxConnections, cfg.MaxConnections)

	cfg, err = Load([]byte(`
Address = "127.0.0.1:35105"
TripleTransport = true
ReadTimeout = 30

[Logging]
  Level = "DEBUG"

[Audit]
  Enable = true
  File = "audit.db"
`))
	require.NoError(err)
	require.Equal("127.0.0.1:35105", cfg.Address)
	require.True(cfg.TripleTransport)
	require.Equal(30*time.Second, cfg.readTimeout())
	require.True(cfg.Audit.Enable)

	_, err = Load([]byte("[Logging]\nLevel = \"bogus\"\n"))
	require.Error(err)

	_, err = Load([]byte("[Audit]\nEnable = true\n"))
	require.Error(err)
}
