package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// DefaultFailureLimit is how many consecutive failed runs mark the
// service degraded
const DefaultFailureLimit = 5

type HealthChecker struct {
	mu                  sync.RWMutex
	startTime           time.Time
	inFlight            int
	completed           int
	consecutiveFailures int
	failureLimit        int
	lastRun             time.Time
	lastOutcome         string
	now                 func() time.Time
}

type HealthStatus struct {
	Status              string    `json:"status"`
	Timestamp           time.Time `json:"timestamp"`
	Uptime              string    `json:"uptime"`
	RunsInFlight        int       `json:"runs_in_flight"`
	RunsCompleted       int       `json:"runs_completed"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRun             time.Time `json:"last_run,omitempty"`
	LastOutcome         string    `json:"last_outcome,omitempty"`
}

func NewHealthChecker(failureLimit int) *HealthChecker {
	if failureLimit <= 0 {
		failureLimit = DefaultFailureLimit
	}
	return &HealthChecker{
		startTime:    time.Now(),
		failureLimit: failureLimit,
		now:          time.Now,
	}
}

func (h *HealthChecker) runStarted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight++
}

func (h *HealthChecker) runFinished(outcome string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inFlight > 0 {
		h.inFlight--
	}
	h.completed++
	h.lastRun = h.now()
	h.lastOutcome = outcome
	if outcome == OutcomeSuccess {
		h.consecutiveFailures = 0
	} else {
		h.consecutiveFailures++
	}
}

// Status returns the current health snapshot
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.consecutiveFailures >= h.failureLimit {
		status = "degraded"
	}
	return HealthStatus{
		Status:              status,
		Timestamp:           h.now(),
		Uptime:              h.now().Sub(h.startTime).String(),
		RunsInFlight:        h.inFlight,
		RunsCompleted:       h.completed,
		ConsecutiveFailures: h.consecutiveFailures,
		LastRun:             h.lastRun,
		LastOutcome:         h.lastOutcome,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}
