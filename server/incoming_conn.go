// incoming_conn.go - per-connection worker.
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
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/triplex-sh/triplex/core/wire"
	"github.com/triplex-sh/triplex/core/wire/commands"
	"github.com/triplex-sh/triplex/server/internal/audit"
	"github.com/triplex-sh/triplex/server/internal/executor"
)

type incomingConn struct {
	s    *Server
	id   uint64
	peer string
	log  *logging.Logger
	exec *executor.Executor

	session *wire.Session
}

func newIncomingConn(s *Server, id uint64, conn net.Conn) *incomingConn {
	c := &incomingConn{
		s:    s,
		id:   id,
		peer: conn.RemoteAddr().String(),
		log:  s.logBackend.GetLogger(fmt.Sprintf("conn:%d", id)),
	}
	c.exec = executor.New(c.log)
	c.session = wire.NewSession(conn, wire.SideServer, wire.SessionConfig{
		MaxFrameSize:    s.cfg.MaxFrameSize,
		ReadTimeout:     s.cfg.readTimeout(),
		TripleTransport: s.cfg.TripleTransport,
	}, c.log)
	c.log.Debugf("New connection: %v", c.peer)
	return c
}

func (c *incomingConn) worker() {
	defer c.session.Close()

	if err := c.session.Initialize(); err != nil {
		handshakeFailures.Inc()
		c.log.Errorf("Handshake failure: %v", err)
		return
	}
	activeSessions.Inc()
	defer activeSessions.Dec()
	c.log.Debugf("Session established: %v", c.peer)

	for {
		// The halt signal is observed between messages; a blocked read
		// is broken by the supervisor closing the stream.
		select {
		case <-c.s.HaltCh():
			c.log.Debugf("Terminating: halted")
			return
		default:
		}

		req, err := c.session.ReadRequest()
		if err != nil {
			if isDisconnect(err) {
				c.log.Debugf("Client disconnected")
			} else {
				c.log.Errorf("Failed to read request: %v", err)
			}
			return
		}

		ans, cerr := c.exec.Execute(req)
		if cerr != nil {
			// Command failures ride back inside a normal Answer; the
			// session continues.
			ans = cerr.Answer()
		}
		c.audit(req, ans)
		requestsTotal.WithLabelValues(req.Command).Inc()

		if err = c.session.SendAnswer(ans); err != nil {
			c.log.Errorf("Failed to send answer: %v", err)
			return
		}
	}
}

func (c *incomingConn) audit(req *commands.Request, ans *commands.Answer) {
	if c.s.auditLog == nil {
		return
	}
	c.s.auditLog.Submit(&audit.Record{
		Session:   c.id,
		Peer:      c.peer,
		Verb:      req.Command,
		Params:    req.Params,
		Code:      ans.Code,
		Timestamp: time.Now().UTC(),
	})
}

// isDisconnect classifies errors that mean the peer went away rather than
// misbehaved.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
