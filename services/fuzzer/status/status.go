// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/zkfuzz/services/fuzzer/campaign"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/telemetry"
)

// shutdownTimeout bounds the drain on Close.
const shutdownTimeout = 5 * time.Second

// StatsSource is the campaign-side view the server reads from. The
// running campaign satisfies it; tests substitute fixtures.
type StatsSource interface {
	// RunID identifies the run being served.
	RunID() string

	// Stats returns a point-in-time snapshot.
	Stats() campaign.Stats
}

// Server exposes campaign state over HTTP.
//
// Description:
//
//	Endpoints:
//
//	  GET /healthz     - liveness, always 200 with the run ID
//	  GET /api/status  - the campaign stats snapshot as JSON
//	  GET /metrics     - Prometheus scrape endpoint
//
//	The server reads snapshots only; it cannot steer the campaign.
//
// Thread Safety: safe for concurrent use after Start.
type Server struct {
	source StatsSource
	logger *slog.Logger
	srv    *http.Server

	mu sync.Mutex
	ln net.Listener
}

// NewServer builds a status server over src. A nil logger uses the
// default.
func NewServer(src StatsSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{source: src, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("zkfuzz-status"))

	router.GET("/healthz", s.handleHealth)
	router.GET("/api/status", s.handleStatus)
	router.GET("/metrics", s.metricsHandler())

	s.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving on addr.
//
// Description:
//
//	Binds synchronously so address errors surface to the caller, then
//	serves in the background. Use Addr to discover the bound address
//	when addr carries port 0.
//
// Inputs:
//
//	addr - listen address, e.g. "127.0.0.1:8844".
//
// Outputs:
//
//	error - A bind error. Serve errors after a successful bind are
//	    logged, not returned; the campaign must not die with its
//	    status page.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("status server stopped", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("status server listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start and after Close.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close drains in-flight requests and stops the server. Safe to call
// more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// ===== Handlers ==============================================================

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"run_id": s.source.RunID(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Stats())
}

// metricsHandler prefers the telemetry bridge so OTel-recorded metrics
// ride along, falling back to the default registry handler.
func (s *Server) metricsHandler() gin.HandlerFunc {
	h := telemetry.MetricsHandler()
	if h == nil {
		h = promhttp.Handler()
	}
	return gin.WrapH(h)
}
