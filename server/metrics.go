// metrics.go - Prometheus instrumentation.
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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "triplex",
		Name:      "connections_total",
		Help:      "Number of accepted connections.",
	})
	handshakeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "triplex",
		Name:      "handshake_failures_total",
		Help:      "Number of connections dropped during the handshake.",
	})
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "triplex",
		Name:      "active_sessions",
		Help:      "Number of sessions currently established.",
	})
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triplex",
		Name:      "requests_total",
		Help:      "Number of executed requests by verb.",
	}, []string{"verb"})
)

func init() {
	prometheus.MustRegister(connectionsTotal)
	prometheus.MustRegister(handshakeFailures)
	prometheus.MustRegister(activeSessions)
	prometheus.MustRegister(requestsTotal)
}

// startMetrics serves the Prometheus endpoint on its own listener.  The
// HTTP server is closed when the Server halts.
func (s *Server) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: s.cfg.Metrics.Address, Handler: mux}
	s.Go(func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			s.log.Errorf("Metrics listener failure: %v", err)
		}
	})
	s.Go(func() {
		<-s.HaltCh()
		srv.Close()
	})
}
