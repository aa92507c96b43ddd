package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// pendingThreshold is the backlog above which the relay reports a warning.
const pendingThreshold = 1000

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastEventTime     time.Time `json:"last_event_time"`
	EventsProcessed   uint64    `json:"events_processed"`
	PendingEvents     int64     `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	BusConnected      bool      `json:"bus_connected"`
	WorkerActive      bool      `json:"worker_active"`
	Errors            []string  `json:"errors"`
}

// Store is what the health check reads from the outbox table.
type Store interface {
	Ping(ctx context.Context) error
	Pending(ctx context.Context) (int64, error)
}

// BusConn reports the state of the message bus connection.
type BusConn interface {
	Connected() bool
}

type HealthChecker struct {
	worker    *Worker
	store     Store
	bus       BusConn
	clock     clockwork.Clock
	threshold time.Duration // How long a backlog may go unrelayed
}

// NewHealthChecker builds a checker. bus may be nil when events are only
// logged.
func NewHealthChecker(worker *Worker, store Store, bus BusConn, threshold time.Duration) *HealthChecker {
	return &HealthChecker{
		worker:    worker,
		store:     store,
		bus:       bus,
		clock:     worker.clock,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	status.EventsProcessed, status.LastEventTime = h.worker.Stats()

	if err := h.store.Ping(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.bus != nil {
		status.BusConnected = h.bus.Connected()
		if !status.BusConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	status.WorkerActive = h.worker.Running()
	if !status.WorkerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "worker not active")
	}

	if status.DatabaseConnected {
		pending, err := h.store.Pending(ctx)
		if err != nil {
			status.Errors = append(status.Errors, err.Error())
		} else {
			status.PendingEvents = pending
			if pending > pendingThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		idle := h.clock.Since(status.LastEventTime)
		if idle > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", idle))
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health status")
	}
}
