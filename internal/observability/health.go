package observability

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Readiness condition names. The engine is ready only when Postgres is
// reachable, the NATS consumers are attached, and the in-memory caches
// are restored.
const (
	CondPostgres = "postgres"
	CondNATS     = "nats"
	CondEngine   = "engine"
)

// HealthChecker backs the /healthz and /readyz probes. Liveness is
// unconditional; readiness is the conjunction of named conditions, each
// flipped by the component that owns it.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	conditions map[string]bool
}

// NewHealthChecker registers the given conditions, all initially false.
func NewHealthChecker(conditions ...string) *HealthChecker {
	m := make(map[string]bool, len(conditions))
	for _, c := range conditions {
		m[c] = false
	}
	return &HealthChecker{
		startTime:  time.Now(),
		conditions: m,
	}
}

// SetCondition flips one readiness condition. Unknown names are added, so
// a component can register itself late.
func (h *HealthChecker) SetCondition(name string, ok bool) {
	h.mu.Lock()
	h.conditions[name] = ok
	h.mu.Unlock()
}

// IsReady reports whether every condition holds.
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ok := range h.conditions {
		if !ok {
			return false
		}
	}
	return true
}

// snapshotConditions copies the condition map for probe responses.
func (h *HealthChecker) snapshotConditions() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]bool, len(h.conditions))
	for k, v := range h.conditions {
		out[k] = v
	}
	return out
}

// LivenessHandler returns HTTP 200 while the process is alive.
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	})
}

// ReadinessHandler returns HTTP 200 when every condition holds and 503
// with the per-condition breakdown otherwise.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	conditions := h.snapshotConditions()
	ready := true
	for _, ok := range conditions {
		if !ok {
			ready = false
			break
		}
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"conditions": conditions,
	})
}
