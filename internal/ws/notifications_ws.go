package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/fabricioGuac/chat-fusion/internal/identity"
	"github.com/fabricioGuac/chat-fusion/internal/observability"
)

// NotificationSocketHandler admits a user's personal notification channel.
// Every chat the user belongs to fans membership and unread events into this
// socket, so no per-chat authorization applies here beyond the token itself.
type NotificationSocketHandler struct {
	hub     *Hub
	gateway identity.Gateway
}

func NewNotificationSocketHandler(hub *Hub, gateway identity.Gateway) *NotificationSocketHandler {
	return &NotificationSocketHandler{hub: hub, gateway: gateway}
}

func (h *NotificationSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-fusion/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := resolveSocketToken(ctx, h.gateway, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddUserClient(userID, conn, info)

	observability.IncWSActive(channelNotifications)
	observability.IncWSEvent(channelNotifications, "ws_connect")

	go func() {
		defer func() {
			h.hub.RemoveUserClient(userID, conn)
			observability.DecWSActive(channelNotifications)
			observability.IncWSEvent(channelNotifications, "ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(channelNotifications, "ws_error")
				}
				return
			}
		}
	}()
}
