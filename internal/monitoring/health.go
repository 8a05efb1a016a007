package monitoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/narratives/internal/logging"
)

const (
	STATUS_STARTING = "starting"
	STATUS_OK       = "ok"
	STATUS_DEGRADED = "degraded"
)

// CycleStatus is what the bot reports after each monitoring cycle.
type CycleStatus struct {
	CycleID    string    `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      int       `json:"items"`
	Narratives int       `json:"narratives"`
	Alerts     int       `json:"alerts"`
	Fallback   bool      `json:"fallback"`
	Error      string    `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string       `json:"status"`
	Uptime    string       `json:"uptime"`
	Running   bool         `json:"cycle_running"`
	Cycles    int64        `json:"cycles_completed"`
	LastCycle *CycleStatus `json:"last_cycle,omitempty"`
}

type Health struct {
	mu        sync.RWMutex
	last      *CycleStatus
	running   atomic.Bool
	completed atomic.Int64
	startedAt time.Time

	server *http.Server
	logger *slog.Logger
}

func NewHealth(addr string, logger *slog.Logger) *Health {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Health{startedAt: time.Now(), logger: logger}
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

func (h *Health) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", h.handleHealth)
	return r
}

func (h *Health) CycleStarted() {
	h.running.Store(true)
}

func (h *Health) CycleFinished(status CycleStatus) {
	h.mu.Lock()
	h.last = &status
	h.mu.Unlock()
	h.completed.Add(1)
	h.running.Store(false)
}

func (h *Health) Snapshot() HealthResponse {
	h.mu.RLock()
	var last *CycleStatus
	if h.last != nil {
		cp := *h.last
		last = &cp
	}
	h.mu.RUnlock()

	status := STATUS_STARTING
	if last != nil {
		status = STATUS_OK
		if last.Error != "" {
			status = STATUS_DEGRADED
		}
	}

	return HealthResponse{
		Status:    status,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Running:   h.running.Load(),
		Cycles:    h.completed.Load(),
		LastCycle: last,
	}
}

func (h *Health) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.Snapshot())
}

// Start serves in the background until Shutdown.
func (h *Health) Start() {
	go func() {
		h.logger.Info("[HealthCheck] Listening", slog.String("addr", h.server.Addr))
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("[HealthCheck] Server stopped", slog.String("error", err.Error()))
		}
	}()
}

func (h *Health) Shutdown(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("[HealthCheck] shutdown: %w", err)
	}
	return nil
}
