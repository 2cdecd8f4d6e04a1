package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/pkg/response"
)

const pingTimeout = 2 * time.Second

type HealthHandler struct {
	// Ping checks the user store; nil for the in-memory store.
	Ping func(ctx context.Context) error
}

func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{Ping: ping}
}

// Health GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			response.Error[any](c, http.StatusServiceUnavailable, "store unavailable", "store_unavailable")
			return
		}
	}
	response.Success(c, http.StatusOK, gin.H{"message": "ok"}, "ok", nil)
}
