package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/pkg/response"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// dependency is one backing service checked by Ready. A failed critical
// dependency makes the engine unready; a failed optional one only degrades it.
type dependency struct {
	name     string
	critical bool
	ping     func(ctx context.Context) error
}

type HealthHandler struct {
	deps    []dependency
	timeout time.Duration
	started time.Time
	logger  logrus.FieldLogger
}

// NewHealthHandler watches the ledger database, which every loan operation
// needs, and the summary cache, which the engine can run without.
func NewHealthHandler(db *sqlx.DB, redis redis.Cmdable, timeout time.Duration, logger logrus.FieldLogger) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		deps: []dependency{
			{name: "ledger_db", critical: true, ping: func(ctx context.Context) error { return db.PingContext(ctx) }},
			{name: "summary_cache", ping: func(ctx context.Context) error { return redis.Ping(ctx).Err() }},
		},
		timeout: timeout,
		started: time.Now(),
		logger:  logger,
	}
}

type DependencyCheck struct {
	Status    string `json:"status"`
	Critical  bool   `json:"critical"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthStatus struct {
	Status        string                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Dependencies  map[string]DependencyCheck `json:"dependencies,omitempty"`
}

// Health reports liveness only
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.status())
}

// Ready pings every dependency. It answers 503 only when a critical one is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.status()
	status.Dependencies = make(map[string]DependencyCheck, len(h.deps))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	for _, dep := range h.deps {
		check := h.check(ctx, dep)
		status.Dependencies[dep.name] = check
		if check.Status == StatusOK {
			continue
		}
		if dep.critical {
			status.Status = StatusDown
		} else if status.Status == StatusOK {
			status.Status = StatusDegraded
		}
	}

	switch status.Status {
	case StatusDown:
		h.logger.WithField("dependencies", status.Dependencies).Warn("Lending engine is not ready")
		response.ServiceUnavailable(w, status)
		return
	case StatusDegraded:
		h.logger.WithField("dependencies", status.Dependencies).Warn("Lending engine is running without its summary cache")
	}

	response.Success(w, status)
}

func (h *HealthHandler) check(ctx context.Context, dep dependency) DependencyCheck {
	start := time.Now()
	err := dep.ping(ctx)
	check := DependencyCheck{
		Status:    StatusOK,
		Critical:  dep.critical,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusDown
		check.Error = err.Error()
	}
	return check
}

func (h *HealthHandler) status() HealthStatus {
	now := time.Now()
	return HealthStatus{
		Status:        StatusOK,
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
	}
}
