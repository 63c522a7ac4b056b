// server.go - triplex server supervisor.
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

// Package server provides the triplex server: a TCP listener whose
// blocking accept loop is isolated on its own goroutine, a dispatcher that
// hands accepted streams to per-connection workers through a depth-1
// channel, and a clean drain of every worker on shutdown.
package server

import (
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/net/netutil"
	"gopkg.in/op/go-logging.v1"

	"github.com/triplex-sh/triplex/core/log"
	"github.com/triplex-sh/triplex/core/worker"
	"github.com/triplex-sh/triplex/server/internal/audit"
)

// Server is a triplex server instance.
type Server struct {
	worker.Worker

	cfg *Config

	logBackend *log.Backend
	log        *logging.Logger

	listener net.Listener
	acceptCh chan net.Conn

	auditLog *audit.Log

	connsLock sync.Mutex
	conns     map[uint64]net.Conn

	sessionID uint64
	stop      uint32
}

// New constructs a Server from a validated configuration, binds the
// listener and starts the accept and dispatch workers.
func New(cfg *Config) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		acceptCh: make(chan net.Conn, 1),
		conns:    make(map[uint64]net.Conn),
	}

	var err error
	if s.logBackend, err = log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable); err != nil {
		return nil, err
	}
	s.log = s.logBackend.GetLogger("server")

	if cfg.Audit.Enable {
		if s.auditLog, err = audit.New(cfg.Audit.File, s.logBackend.GetLogger("audit")); err != nil {
			return nil, err
		}
	}

	if s.listener, err = net.Listen("tcp", cfg.Address); err != nil {
		if s.auditLog != nil {
			s.auditLog.Shutdown()
		}
		return nil, err
	}
	s.listener = netutil.LimitListener(s.listener, cfg.MaxConnections)
	s.log.Noticef("Listening on: %v", s.listener.Addr())

	if cfg.Metrics.Enable {
		s.startMetrics()
	}

	s.Go(s.acceptWorker)
	s.Go(s.dispatchWorker)
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown terminates the server: no further connections are accepted,
// every connection worker is signalled and waited for, and the audit
// trail is flushed.
func (s *Server) Shutdown() {
	if !atomic.CompareAndSwapUint32(&s.stop, 0, 1) {
		return
	}
	s.log.Noticef("Shutting down")
	s.listener.Close()

	// A worker blocked in a stream read only observes the halt once its
	// read returns, so force the reads to return.
	s.connsLock.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.connsLock.Unlock()

	s.Halt()
	if s.auditLog != nil {
		s.auditLog.Shutdown()
	}
	s.log.Noticef("Shutdown complete")
}

// acceptWorker owns the blocking accept call so that a stalled dispatch
// can never wedge the listener.
func (s *Server) acceptWorker() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if atomic.LoadUint32(&s.stop) == 1 {
				return
			}
			select {
			case <-s.HaltCh():
				return
			default:
			}
			s.log.Errorf("Accept failure: %v", err)
			continue
		}
		select {
		case s.acceptCh <- conn:
		case <-s.HaltCh():
			conn.Close()
			return
		}
	}
}

func (s *Server) dispatchWorker() {
	for {
		select {
		case <-s.HaltCh():
			return
		case conn := <-s.acceptCh:
			if atomic.LoadUint32(&s.stop) == 1 {
				conn.Close()
				continue
			}
			s.onNewConn(conn)
		}
	}
}

func (s *Server) onNewConn(conn net.Conn) {
	id := atomic.AddUint64(&s.sessionID, 1)
	connectionsTotal.Inc()

	s.connsLock.Lock()
	s.conns[id] = conn
	s.connsLock.Unlock()

	c := newIncomingConn(s, id, conn)
	s.Go(func() {
		defer func() {
			s.connsLock.Lock()
			delete(s.conns, id)
			s.connsLock.Unlock()
		}()
		c.worker()
	})
}
