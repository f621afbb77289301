// Package health exposes liveness and readiness probes for long-running
// simulation processes.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/opd-ai/go-nbody/pkg/engine"
)

// HealthCheck defines the interface for individual health checks.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the process.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks. The overall status is
// "healthy" only if every check passes.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler always answers 200 while the process can serve requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs every check and answers 200 when all pass, 503
// otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// Handler routes /health to the liveness probe and /ready to the readiness
// probe.
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	return mux
}

// SimulationState is the part of a simulation the health check observes.
type SimulationState interface {
	Running() bool
	Stats() engine.Stats
	Snapshot() []engine.BodyState
}

// ErrNotRunning is reported while the simulation is stopped.
var ErrNotRunning = errors.New("simulation is not running")

// SimulationHealthCheck reports unhealthy when the simulation is stopped,
// when its step counter has not advanced for longer than stallTimeout, or
// when any body has a non-finite position or heat.
type SimulationHealthCheck struct {
	sim          SimulationState
	stallTimeout time.Duration
	now          func() time.Time

	mu         sync.Mutex
	lastStep   uint64
	lastChange time.Time
}

// NewSimulationHealthCheck creates a health check for sim.
func NewSimulationHealthCheck(sim SimulationState, stallTimeout time.Duration) *SimulationHealthCheck {
	return &SimulationHealthCheck{
		sim:          sim,
		stallTimeout: stallTimeout,
		now:          time.Now,
		lastChange:   time.Now(),
	}
}

// Name returns the name of this health check.
func (s *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies that the simulation is running, advancing and finite.
func (s *SimulationHealthCheck) Check(ctx context.Context) error {
	if !s.sim.Running() {
		return ErrNotRunning
	}

	step := s.sim.Stats().Step
	now := s.now()
	s.mu.Lock()
	if step != s.lastStep {
		s.lastStep = step
		s.lastChange = now
	}
	stalled := now.Sub(s.lastChange)
	s.mu.Unlock()
	if stalled > s.stallTimeout {
		return fmt.Errorf("simulation stalled at step %d for %v", step, stalled)
	}

	for _, b := range s.sim.Snapshot() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.Position.IsFinite() || math.IsNaN(b.Heat) || math.IsInf(b.Heat, 0) {
			return fmt.Errorf("body %d has non-finite state (position %v, heat %v)", b.ID, b.Position, b.Heat)
		}
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check comparing getMemoryUsage, in
// MB, against maxMemoryMB.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// HeapAllocMB returns the bytes of allocated heap objects in MB.
func HeapAllocMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
