package http

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds each dependency probe.
const healthTimeout = 3 * time.Second

// HealthCheck probes one dependency. A nil Check reports "disabled".
// Only required checks turn the overall status to degraded.
type HealthCheck struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

type healthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Version:  h.Version,
		Services: make(map[string]string, len(h.HealthChecks)),
	}
	status := http.StatusOK

	for _, hc := range h.HealthChecks {
		if hc.Check == nil {
			resp.Services[hc.Name] = "disabled"
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := hc.Check(ctx)
		cancel()
		if err == nil {
			resp.Services[hc.Name] = "ok"
			continue
		}
		resp.Services[hc.Name] = "unavailable"
		if hc.Required {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
