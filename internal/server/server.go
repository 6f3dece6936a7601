package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/hostsnap/internal/plugin"
	"github.com/HerbHall/hostsnap/internal/version"
)

// VersionHeader carries the server version on every core response.
const VersionHeader = "X-HostSnap-Version"

// DefaultWriteTimeout bounds a single response. Process sampling on Windows
// issues several counter queries per process, so a busy host needs minutes.
const DefaultWriteTimeout = 5 * time.Minute

// Option configures a Server.
type Option func(*http.Server)

// WithWriteTimeout overrides DefaultWriteTimeout. Non-positive values are
// ignored.
func WithWriteTimeout(d time.Duration) Option {
	return func(hs *http.Server) {
		if d > 0 {
			hs.WriteTimeout = d
		}
	}
}

// Server is the main HostSnap server.
type Server struct {
	httpServer *http.Server
	registry   *plugin.Registry
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a new Server instance. gatherer backs GET /metrics; a nil
// gatherer leaves the route unmounted.
func New(addr string, reg *plugin.Registry, gatherer prometheus.Gatherer, logger *zap.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		registry: reg,
		gatherer: gatherer,
		logger:   logger,
		mux:      mux,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      RequestID(logger, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(s.httpServer)
	}

	s.registerCoreRoutes()
	s.mountPluginRoutes()

	return s
}

// WriteTimeout reports the effective response write deadline.
func (s *Server) WriteTimeout() time.Duration {
	return s.httpServer.WriteTimeout
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mux.HandleFunc("/api/v1/", s.handleNotFound)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// mountPluginRoutes registers all plugin routes under /api/v1/{plugin}/.
func (s *Server) mountPluginRoutes() {
	allRoutes := s.registry.AllRoutes()
	for pluginName, routes := range allRoutes {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, pluginName, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", pluginName),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(VersionHeader, version.Short())
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hostsnap",
		"version": version.Map(),
	})
}

// handlePlugins returns the list of registered plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(VersionHeader, version.Short())
	WriteJSON(w, http.StatusOK, s.registry.Infos())
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, "no route for "+r.Method+" "+r.URL.Path, r.URL.Path)
}
