// Package server exposes the image resolution API, the signed webhook
// receiver, and the health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hfi/notion-redactor/internal/audit"
	"github.com/hfi/notion-redactor/internal/webhook"
)

// HealthStatus represents the health status of the server
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is a function that checks component health
type HealthChecker func() (ok bool, message string)

// Resolver is the placeholder resolution surface the API serves.
type Resolver interface {
	ResolveAll(ctx context.Context, postID string) (map[string]string, error)
	FetchThrough(ctx context.Context, originalURL, key string) (string, error)
	CheckCached(ctx context.Context, key string) (string, bool, error)
}

// Config holds server configuration
type Config struct {
	// Addr is the address to listen on (e.g., ":8080")
	Addr string `yaml:"addr"`

	// MetricsPath is the path for Prometheus metrics
	MetricsPath string `yaml:"metrics_path"`

	// MetricsEnabled controls whether the metrics endpoint is registered
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// Version is the application version
	Version string `yaml:"-"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8080",
		MetricsPath:    "/metrics",
		MetricsEnabled: true,
		Version:        "dev",
	}
}

// Server serves the resolution API and management endpoints
type Server struct {
	mu        sync.RWMutex
	server    *http.Server
	mux       *http.ServeMux
	checkers  map[string]HealthChecker
	startTime time.Time
	version   string

	resolver   Resolver
	verifier   *webhook.Verifier
	regenerate func(pageID string)
	auditLog   *audit.Logger
	log        zerolog.Logger
}

// New creates a server. regenerate is invoked asynchronously for each
// accepted webhook delivery; a nil verifier rejects all webhook traffic.
func New(cfg *Config, resolver Resolver, verifier *webhook.Verifier, regenerate func(pageID string), log zerolog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		mux:        http.NewServeMux(),
		checkers:   make(map[string]HealthChecker),
		startTime:  time.Now(),
		version:    cfg.Version,
		resolver:   resolver,
		verifier:   verifier,
		regenerate: regenerate,
		log:        log,
	}

	// Register routes
	s.mux.Handle("GET /api/image-map", s.instrument("image_map", s.imageMapHandler))
	s.mux.Handle("GET /api/image-proxy", s.instrument("image_proxy", s.imageProxyHandler))
	s.mux.Handle("GET /api/image-proxy-check", s.instrument("image_proxy_check", s.imageProxyCheckHandler))
	s.mux.Handle("POST /api/webhook", s.instrument("webhook", s.webhookHandler))
	if cfg.MetricsEnabled {
		s.mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}
	s.mux.HandleFunc("/healthz", s.healthHandler)
	s.mux.HandleFunc("/readyz", s.readyHandler)
	s.mux.HandleFunc("/livez", s.liveHandler)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// SetAuditLogger attaches the security event trail.
func (s *Server) SetAuditLogger(l *audit.Logger) {
	s.auditLog = l
}

// RegisterHealthCheck registers a health checker
func (s *Server) RegisterHealthCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// Start starts the server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// healthHandler returns detailed health status
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    make(map[string]string),
	}

	// Run all health checks
	allHealthy := true
	for name, checker := range s.checkers {
		ok, msg := checker()
		if ok {
			status.Checks[name] = "ok"
		} else {
			status.Checks[name] = msg
			allHealthy = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !allHealthy {
		status.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.log.Debug().Err(err).Msg("encode health status")
	}
}

// readyHandler indicates if the service is ready to receive traffic
func (s *Server) readyHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Check all health checkers
	for name, checker := range s.checkers {
		ok, _ := checker()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := fmt.Fprintf(w, "not ready: %s check failed", name); err != nil {
				return
			}
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		// Connection closed, nothing we can do
		return
	}
}

// liveHandler indicates if the service is alive
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	// Simple liveness check - if we can respond, we're alive
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		// Connection closed, nothing we can do
		return
	}
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the server address
func (s *Server) Addr() string {
	return s.server.Addr
}
