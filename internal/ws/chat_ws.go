package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/fabricioGuac/chat-fusion/internal/identity"
	"github.com/fabricioGuac/chat-fusion/internal/observability"
	"github.com/fabricioGuac/chat-fusion/internal/presence"
)

// MembershipChecker answers whether a user belongs to a chat before the
// socket is admitted.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, chatID string) (bool, error)
}

// ChatSocketHandler admits websocket connections to a chat channel. A live
// chat connection also marks the user as present on the chat, which the
// unread ledger uses to hand out immediate read marks.
type ChatSocketHandler struct {
	hub     *Hub
	engine  MembershipChecker
	tracker *presence.Tracker
	gateway identity.Gateway
}

// NewChatSocketHandler constructs a ChatSocketHandler.
func NewChatSocketHandler(hub *Hub, engine MembershipChecker, tracker *presence.Tracker, gateway identity.Gateway) *ChatSocketHandler {
	return &ChatSocketHandler{hub: hub, engine: engine, tracker: tracker, gateway: gateway}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the client and tracks presence
// until the socket closes.
func (h *ChatSocketHandler) Handle(c *gin.Context) {
	chatID := c.Param("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	ctx, span := otel.Tracer("chat-fusion/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := resolveSocketToken(ctx, h.gateway, c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.engine.IsMember(ctx, userID, chatID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
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
	h.hub.AddChatClient(chatID, conn, info)
	h.tracker.Connect(chatID, userID)

	observability.IncWSActive(channelChat)
	observability.IncWSEvent(channelChat, "ws_connect")

	go func() {
		defer func() {
			h.hub.RemoveChatClient(chatID, conn)
			h.tracker.Disconnect(chatID, userID)
			observability.DecWSActive(channelChat)
			observability.IncWSEvent(channelChat, "ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(channelChat, "ws_error")
				}
				return
			}
		}
	}()
}

// resolveSocketToken accepts the token either as a bearer header or as a
// query parameter, since browsers cannot set headers on websocket dials.
func resolveSocketToken(ctx context.Context, gateway identity.Gateway, c *gin.Context) (string, error) {
	token := c.GetHeader("Authorization")
	if token != "" {
		parts := strings.SplitN(token, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	} else {
		token = c.Query("token")
	}
	return gateway.ResolveCaller(ctx, token)
}
