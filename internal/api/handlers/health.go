package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Pinger is a dependency the health check can ping
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// PingContext calls f
func (f PingFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler reports dependency and host status
type HealthHandler struct {
	version string
	started time.Time
	checks  map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. checks maps a dependency
// name to its ping.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		version: version,
		started: time.Now(),
		checks:  checks,
	}
}

// HealthResponse is the body of GET /api/v1/health
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Checks     map[string]string `json:"checks"`
	Goroutines int               `json:"goroutines"`
	Host       *HostStatus       `json:"host,omitempty"`
}

// HostStatus is the memory and load of the machine
type HostStatus struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	MemoryTotal       uint64  `json:"memory_total"`
	Load1             float64 `json:"load1"`
	Load5             float64 `json:"load5"`
	Load15            float64 `json:"load15"`
}

// Health handles GET /api/v1/health. Any failing dependency turns the
// response into a 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "ok",
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Checks:     make(map[string]string, len(h.checks)),
		Goroutines: runtime.NumGoroutine(),
		Host:       hostStatus(ctx),
	}

	code := http.StatusOK
	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	RenderJSON(w, code, resp)
}

// hostStatus returns nil when the platform exposes no metrics
func hostStatus(ctx context.Context) *HostStatus {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil
	}

	status := &HostStatus{
		MemoryUsedPercent: vm.UsedPercent,
		MemoryTotal:       vm.Total,
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		status.Load1 = avg.Load1
		status.Load5 = avg.Load5
		status.Load15 = avg.Load15
	}

	return status
}
