package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/furniture-credit/internal/dto"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db       Pinger
	provider ProviderChecker
}

// NewHealthHandler takes a nil db when running on the in-memory store.
func NewHealthHandler(db Pinger, provider ProviderChecker) *HealthHandler {
	return &HealthHandler{db: db, provider: provider}
}

// Health reports 503 when the database is down. A provider outage only
// degrades the service: cached credit data stays readable.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := dto.HealthResponse{Status: "healthy", Checks: map[string]string{}, Timestamp: time.Now().UTC()}

	if h.db == nil {
		resp.Checks["database"] = "memory"
	} else if err := h.db.Ping(ctx); err != nil {
		resp.Checks["database"] = "disconnected"
		resp.Status = "unhealthy"
	} else {
		resp.Checks["database"] = "connected"
	}

	if h.provider != nil {
		if err := h.provider.HealthCheck(ctx); err != nil {
			resp.Checks["credit_provider"] = "unreachable"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		} else {
			resp.Checks["credit_provider"] = "reachable"
		}
	}

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
