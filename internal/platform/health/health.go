package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

// Handler serves liveness and readiness probes.
type Handler struct {
	db      *gorm.DB
	service string
	checks  map[string]CheckFunc
}

// NewHandler creates a health handler that pings db on readiness.
func NewHandler(db *gorm.DB, service string) *Handler {
	return &Handler{db: db, service: service, checks: make(map[string]CheckFunc)}
}

// AddCheck registers an extra readiness check.
func (h *Handler) AddCheck(name string, fn CheckFunc) {
	h.checks[name] = fn
}

// RegisterRoutes registers /health and /health/ready.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Live)
	r.GET("/health/ready", h.Ready)
}

// Live reports that the process is up.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

// Ready reports whether dependencies are reachable.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := gin.H{}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		results["database"] = "down"
		healthy = false
	} else {
		results["database"] = "up"
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = "down: " + err.Error()
			continue
		}
		results[name] = "up"
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "service": h.service, "checks": results})
}
