// Package health exposes the engine's liveness and the telemetry store's
// reachability over HTTP, for operators running the engine as a long-lived
// process. It never influences consensus; a failing health check only
// affects what this package itself reports.
package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"powconsensus/logger"
	"powconsensus/metrics"
	"powconsensus/telemetry"
)

// Status is the JSON body served by HealthHandler.
type Status struct {
	Status     string                 `json:"status"`
	Timestamp  int64                  `json:"timestamp"`
	Uptime     string                 `json:"uptime"`
	Telemetry  ServiceInfo            `json:"telemetry"`
	Metrics    map[string]interface{} `json:"metrics"`
	SystemInfo SystemInfo             `json:"system_info"`
}

// ServiceInfo reports one dependency's reachability.
type ServiceInfo struct {
	Status      string `json:"status"`
	LastChecked int64  `json:"last_checked"`
	Message     string `json:"message,omitempty"`
}

// SystemInfo carries process-level diagnostics.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemoryMB     uint64 `json:"memory_mb"`
}

// Checker answers HTTP health and readiness checks for the running engine.
type Checker struct {
	store     *telemetry.Store
	startTime time.Time
}

// NewChecker builds a Checker bound to the engine's telemetry store. store
// may be nil: the telemetry dependency is then reported unhealthy rather
// than dereferenced.
func NewChecker(store *telemetry.Store) *Checker {
	return &Checker{store: store, startTime: time.Now()}
}

// CheckHealth assembles the current Status.
func (c *Checker) CheckHealth() *Status {
	status := &Status{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		Uptime:    time.Since(c.startTime).String(),
		Metrics:   metricsSnapshot(),
	}

	status.Telemetry = c.checkTelemetry()
	if status.Telemetry.Status != "healthy" {
		status.Status = "degraded"
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	status.SystemInfo = SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemoryMB:     m.Alloc / 1024 / 1024,
	}

	return status
}

func (c *Checker) checkTelemetry() ServiceInfo {
	now := time.Now().Unix()

	if c.store == nil {
		return ServiceInfo{Status: "unhealthy", LastChecked: now, Message: "telemetry store not attached"}
	}

	if _, err := c.store.Recent(1); err != nil {
		return ServiceInfo{Status: "unhealthy", LastChecked: now, Message: "telemetry read failed: " + err.Error()}
	}

	return ServiceInfo{Status: "healthy", LastChecked: now}
}

func metricsSnapshot() map[string]interface{} {
	m := metrics.Global()
	return map[string]interface{}{
		"blocks_mined": m.BlocksMined(),
		"retargets":    m.Retargets(),
		"fallbacks":    m.Fallbacks(),
		"hash_rate":    m.HashRate(),
	}
}

// HealthHandler serves CheckHealth as JSON, with a 503 when unhealthy.
func (c *Checker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := c.CheckHealth()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "healthy", "degraded":
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		logger.Errorf("failed to encode health response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// ReadinessHandler reports process readiness independent of telemetry state.
func (c *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":     true,
		"timestamp": time.Now().Unix(),
	})
}
