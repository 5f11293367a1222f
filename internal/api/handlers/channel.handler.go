package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

// channelTestTimeout bounds a full test sweep across every enabled channel.
const channelTestTimeout = 10 * time.Second

type ChannelHandler struct {
	manager *alerting.Manager
	logger  logger.Logger
}

func NewChannelHandler(manager *alerting.Manager, logger logger.Logger) *ChannelHandler {
	return &ChannelHandler{
		manager: manager,
		logger:  logger,
	}
}

// GET /api/v1/channels - List configured notification channels
func (h *ChannelHandler) GetChannels(c *gin.Context) {
	channels := h.manager.GetChannels()
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"data":      gin.H{"channels": channels, "total": len(channels)},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// POST /api/v1/channels/test - Send a test notification through every enabled channel
func (h *ChannelHandler) TestChannels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), channelTestTimeout)
	defer cancel()

	results := h.manager.TestNotificationChannels(ctx)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"results":   results,
			"tested":    len(results),
			"succeeded": succeeded,
			"failed":    len(results) - succeeded,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
