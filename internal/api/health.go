package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each component probe.
const healthCheckTimeout = 3 * time.Second

// Component health states.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDisabled = "disabled"
	HealthDown     = "down"
)

// ComponentHealth is the health of one dependency.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]ComponentHealth `json:"components"`
}

// handleHealth probes each configured dependency. Any failing component
// makes the overall status degraded and the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  HealthOK,
		Version: s.version,
		Components: map[string]ComponentHealth{
			"upstream": s.probe(r.Context(), s.upstream),
			"mqtt":     s.probe(r.Context(), s.mqtt),
			"audit_db": s.probe(r.Context(), s.auditDB),
		},
	}

	status := http.StatusOK
	for _, c := range resp.Components {
		if c.Status == HealthDown {
			resp.Status = HealthDegraded
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) probe(ctx context.Context, hc HealthChecker) ComponentHealth {
	if hc == nil {
		return ComponentHealth{Status: HealthDisabled}
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := hc.HealthCheck(ctx); err != nil {
		return ComponentHealth{Status: HealthDown, Error: err.Error()}
	}
	return ComponentHealth{Status: HealthOK}
}
