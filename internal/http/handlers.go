package http

import (
	"encoding/json"
	"net/http"
	"time"

	applog "fleetdash/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}
	writeJSON(w, http.StatusOK, health)
}

// handleReady checks that templates are loaded and the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.dashboard.Ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Store readiness check failed", applog.FieldError, err)
		checks["store"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	tm := s.tracer.GetMetrics()
	dm := s.detector.GetMetrics()
	metrics := map[string]interface{}{
		"total_requests":      tm.TotalRequests,
		"server_errors":       tm.ServerErrors,
		"suspicious_requests": dm.SuspiciousRequests,
		"blocked_requests":    dm.BlockedRequests,
	}
	if s.limiter != nil {
		lm := s.limiter.GetMetrics()
		metrics["rate_limited"] = lm.Rejected
		metrics["rate_limit_clients"] = lm.ClientCount
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
		"metrics":   metrics,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
