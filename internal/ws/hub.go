package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fabricioGuac/chat-fusion/internal/fanout"
	"github.com/fabricioGuac/chat-fusion/internal/observability"
)

// Destination channels the hub serves.
const (
	channelChat          = "chat"
	channelNotifications = "notifications"
)

// Hub maintains the live websocket connections, keyed by chat id for shared
// chat channels and by user id for private notification channels. It is the
// in-process Transport of the notification fanout.
type Hub struct {
	mu        sync.RWMutex
	chatRooms map[string]map[*websocket.Conn]ConnInfo
	userConns map[string]map[*websocket.Conn]ConnInfo
	log       *logrus.Entry
}

// NewHub creates an empty hub.
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		chatRooms: make(map[string]map[*websocket.Conn]ConnInfo),
		userConns: make(map[string]map[*websocket.Conn]ConnInfo),
		log:       log,
	}
}

// AddChatClient registers a websocket connection on a chat channel.
func (h *Hub) AddChatClient(chatID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chatRooms[chatID]; !ok {
		h.chatRooms[chatID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.chatRooms[chatID][conn] = info
}

// RemoveChatClient removes a chat channel connection.
func (h *Hub) RemoveChatClient(chatID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.chatRooms[chatID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.chatRooms, chatID)
		}
	}
}

// AddUserClient registers a websocket connection on a user's notification
// channel.
func (h *Hub) AddUserClient(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userConns[userID]; !ok {
		h.userConns[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.userConns[userID][conn] = info
}

// RemoveUserClient removes a notification channel connection.
func (h *Hub) RemoveUserClient(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userConns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userConns, userID)
		}
	}
}

// Publish implements fanout.Transport, delivering the event to every live
// connection of the destination.
func (h *Hub) Publish(ctx context.Context, destination string, event fanout.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(destination, "chat/"):
		h.broadcastChat(strings.TrimPrefix(destination, "chat/"), payload)
	case strings.HasPrefix(destination, "notifications/"):
		h.broadcastUser(strings.TrimPrefix(destination, "notifications/"), payload)
	default:
		h.log.WithField("destination", destination).Warn("unknown ws destination")
	}
	return nil
}

func (h *Hub) broadcastChat(chatID string, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.chatRooms[chatID]))
	for conn := range h.chatRooms[chatID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.WithError(err).Warn("websocket write error")
			conn.Close()
			h.RemoveChatClient(chatID, conn)
			observability.IncWSEvent(channelChat, "ws_error")
		}
	}
}

func (h *Hub) broadcastUser(userID string, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.userConns[userID]))
	for conn := range h.userConns[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.WithError(err).Warn("websocket write error")
			conn.Close()
			h.RemoveUserClient(userID, conn)
			observability.IncWSEvent(channelNotifications, "ws_error")
		}
	}
}
