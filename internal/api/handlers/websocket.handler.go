package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/platformbuilds/vigil-core/internal/alerting"
	"github.com/platformbuilds/vigil-core/internal/metrics"
	"github.com/platformbuilds/vigil-core/pkg/logger"
)

type WebSocketHandler struct {
	upgrader websocket.Upgrader
	manager  *alerting.Manager
	logger   logger.Logger
}

func NewWebSocketHandler(manager *alerting.Manager, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			// TODO: tighten in prod (check Origin/Host)
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		manager: manager,
		logger:  logger,
	}
}

// GET /api/v1/ws/alerts - WebSocket stream of fired and resolved alerts
func (h *WebSocketHandler) HandleAlertsStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.manager.Subscribe()
	defer h.manager.Unsubscribe(sub)

	metrics.ActiveStreamClients.Inc()
	defer metrics.ActiveStreamClients.Dec()

	h.logger.Info("WebSocket client connected", "stream", "alerts", "clientIp", c.ClientIP())

	// Drain reads so close frames and pings are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// basic heartbeat so idle proxies don't drop us
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case alert, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(map[string]interface{}{
				"type":      "alert_update",
				"data":      alert,
				"timestamp": time.Now().Format(time.RFC3339),
			}); err != nil {
				h.logger.Error("WebSocket write failed", "error", err)
				return
			}
		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
