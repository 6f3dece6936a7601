package hostmetrics

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/hostsnap/internal/plugin"
	"github.com/HerbHall/hostsnap/internal/server"
	"github.com/HerbHall/hostsnap/internal/telemetry"
)

// capabilitiesResponse is the body of GET /capabilities.
type capabilitiesResponse struct {
	PerCoreCPU bool   `json:"per_core_cpu"`
	Processes  bool   `json:"processes"`
	OS         string `json:"os"`
}

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/cpu", Handler: p.limited(p.handleCPU)},
		{Method: "GET", Path: "/memory", Handler: p.limited(p.handleMemory)},
		{Method: "GET", Path: "/system", Handler: p.limited(p.handleSystem)},
		{Method: "GET", Path: "/processes", Handler: p.limited(p.handleProcesses)},
		{Method: "GET", Path: "/snapshot", Handler: p.limited(p.handleSnapshot)},
		{Method: "GET", Path: "/capabilities", Handler: p.handleCapabilities},
	}
}

// limited rejects requests beyond the configured sampling rate. Sampling is
// host-wide, so the bucket is shared by all clients.
func (p *Plugin) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.limiter != nil && !p.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			server.RateLimited(w, "sampling rate limit exceeded", r.URL.Path)
			return
		}
		next(w, r)
	}
}

func (p *Plugin) handleCPU(w http.ResponseWriter, r *http.Request) {
	m, err := p.service.GetCPUMetrics(r.Context())
	if err != nil {
		p.writeSampleError(w, r, "cpu", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, m)
}

func (p *Plugin) handleMemory(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, p.service.GetMemoryMetrics(r.Context()))
}

func (p *Plugin) handleSystem(w http.ResponseWriter, r *http.Request) {
	info, err := p.service.GetSystemInfo(r.Context())
	if err != nil {
		p.writeSampleError(w, r, "system", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, info)
}

// handleProcesses returns ranked processes. ?limit=N keeps the first N.
func (p *Plugin) handleProcesses(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	procs, err := p.service.GetProcessMetrics(r.Context())
	if err != nil {
		p.writeSampleError(w, r, "processes", err)
		return
	}
	server.WriteJSON(w, http.StatusOK, Top(procs, limit))
}

// handleSnapshot returns every metric kind, or those named by ?only=.
// ?limit=N applies to the process list.
func (p *Plugin) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	kinds, err := telemetry.ParseKinds(r.URL.Query().Get("only"))
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	snap, err := p.service.Snapshot(r.Context(), kinds...)
	if err != nil {
		p.writeSampleError(w, r, "snapshot", err)
		return
	}
	snap.Processes = Top(snap.Processes, limit)
	server.WriteJSON(w, http.StatusOK, snap)
}

func (p *Plugin) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	caps := p.backend.Capabilities
	server.WriteJSON(w, http.StatusOK, capabilitiesResponse{
		PerCoreCPU: caps.SupportsPerCoreCPUSampling(),
		Processes:  caps.SupportsProcessSampling(),
		OS:         runtime.GOOS,
	})
}

func (p *Plugin) writeSampleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, telemetry.ErrUnsupportedPlatform) {
		server.UnsupportedPlatform(w, err.Error(), r.URL.Path)
		return
	}
	p.logger.Warn("sampling failed",
		zap.String("operation", op),
		zap.String("request_id", server.RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	server.InternalError(w, op+" sampling failed", r.URL.Path)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		server.BadRequest(w, "limit must be a non-negative integer", r.URL.Path)
		return 0, false
	}
	return n, true
}

// Top returns the first n entries of procs, or all of them when n is 0.
func Top(procs []telemetry.ProcessMetrics, n int) []telemetry.ProcessMetrics {
	if n <= 0 || n >= len(procs) {
		return procs
	}
	return procs[:n]
}
