package public

import (
	"context"
	"net/http"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/i18n"

	"github.com/gin-gonic/gin"
)

// Health 健康检查，附带存储连通性
func (h *Handler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			shared.RequestLog(c).Warnw("health_store_ping_failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "DEGRADED",
				"timestamp": now,
				"message":   i18n.T(i18n.ResolveLocale(c), "error.storage_unavailable"),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": now})
}
