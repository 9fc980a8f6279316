package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/coopelec/backend/internal/infrastructure/logger"
	"github.com/coopelec/backend/internal/infrastructure/persistence"
	"github.com/coopelec/backend/internal/interfaces/http/dto"
	"github.com/coopelec/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DatabaseProbe is what the readiness check needs from the database
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	name      string
	version   string
	db        DatabaseProbe
	timeout   time.Duration
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(name, version string, db DatabaseProbe) *HealthHandler {
	return &HealthHandler{
		name:      name,
		version:   version,
		db:        db,
		timeout:   2 * time.Second,
		startTime: time.Now(),
	}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Name      string `json:"name" example:"coop-energy-backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// ReadinessResponse is the readiness payload
type ReadinessResponse struct {
	Status   string                       `json:"status" example:"ready"`
	Database *persistence.ConnectionStats `json:"database,omitempty"`
}

// Routes returns the health route group, mounted at the root
func (h *HealthHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("health", "/health")
	g.GET("", h.Health)
	g.GET("/ready", h.Ready)
	return g
}

// Health reports that the process is up
//
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Ready reports whether the database answers
//
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.L(c.Request.Context()).Warn("Readiness check failed", zap.Error(err))
		h.Error(c, dto.ErrCodeServiceUnavailable, "database unavailable")
		return
	}

	resp := ReadinessResponse{Status: "ready"}
	if stats, err := h.db.Stats(); err == nil {
		resp.Database = &stats
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
