package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabricioGuac/chat-fusion/internal/telemetry"
)

// ChatHandler manages chat lifecycle endpoints shared by direct and group
// chats.
type ChatHandler struct {
	engine LifecycleEngine
	audit  *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(engine LifecycleEngine, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{engine: engine, audit: audit}
}

// StartDirectChat creates or returns the direct chat between the caller and
// another user.
func (h *ChatHandler) StartDirectChat(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	chat, err := h.engine.CreateDirectChat(c.Request.Context(), userID, req.UserID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")

	chats, err := h.engine.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChat returns a single chat the caller belongs to.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	chat, err := h.engine.GetChat(c.Request.Context(), userID, chatID)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// DeleteChat removes a chat with its messages and files.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	if err := h.engine.DeleteChat(c.Request.Context(), userID, chatID); err != nil {
		h.emitAudit(c, "ERROR", "chat deletion rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Chat deleted")
	c.Status(http.StatusNoContent)
}

// MarkRead clears the caller's unread counter for the chat.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	if err := h.engine.MarkRead(c.Request.Context(), userID, chatID); err != nil {
		writeEngineError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
