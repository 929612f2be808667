// Package server runs the HTTP sidecar: health, limiter status, and metrics.
// The MCP protocol itself runs on stdio; this listener exists for load
// balancers, Docker healthchecks, and Prometheus scrapes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/waymcp/waymcp/logging"
	"github.com/waymcp/waymcp/metrics"
	"github.com/waymcp/waymcp/ratelimit"
)

// HTTP is the sidecar listener.
type HTTP struct {
	srv      *http.Server
	limiter  *ratelimit.Limiter
	logger   *logging.Logger
	draining atomic.Bool
}

// New creates the sidecar bound to addr. The metrics handler is optional.
func New(addr string, limiter *ratelimit.Limiter, mtr *metrics.Metrics, logger *logging.Logger) *HTTP {
	h := &HTTP{
		limiter: limiter,
		logger:  logger.WithComponent("http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
	if mtr != nil {
		mux.Handle("/metrics", mtr.Handler())
	}

	h.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Start serves until Shutdown. Blocks; run it in a goroutine.
func (h *HTTP) Start() error {
	h.logger.Info("sidecar listening", map[string]interface{}{"addr": h.srv.Addr})
	err := h.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// SetDraining flips the health endpoint to 503 so the load balancer stops
// routing new requests while in-flight work finishes.
func (h *HTTP) SetDraining() {
	h.draining.Store(true)
}

// Shutdown stops the listener, letting in-flight requests complete.
func (h *HTTP) Shutdown(ctx context.Context) error {
	h.SetDraining()
	return h.srv.Shutdown(ctx)
}

// handleHealth reports liveness: 200 "ok" normally, 503 "shutting down"
// while draining.
func (h *HTTP) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if h.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
		return
	}
	w.Write([]byte("ok"))
}

// handleStatus reports the rate limiter's live counters as JSON.
func (h *HTTP) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := h.limiter.Status()
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Warn("encoding status failed", map[string]interface{}{"error": err.Error()})
	}
}
