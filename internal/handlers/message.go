package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/models"
	"github.com/fabricioGuac/chat-fusion/internal/telemetry"
)

// MessageHandler manages message endpoints for both chat flavors.
type MessageHandler struct {
	engine LifecycleEngine
	audit  *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(engine LifecycleEngine, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{engine: engine, audit: audit}
}

// GetMessages returns a page of chat messages. Fetching a chat with unread
// messages also marks them read for the caller.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	limit := intQuery(c, "limit", 0)
	skip := intQuery(c, "skip", 0)

	msgs, err := h.engine.ChatMessages(c.Request.Context(), userID, chatID, limit, skip)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and broadcasts it. Text messages arrive as
// JSON, file messages as multipart with a "file" field.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	var in chatengine.SendMessageInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, closeUpload, err := formUpload(c, "file")
		if err != nil || upload == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
			return
		}
		defer closeUpload()
		in = chatengine.SendMessageInput{Type: models.MessageTypeFile, File: upload}
	} else {
		var req struct {
			Content string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in = chatengine.SendMessageInput{Type: models.MessageTypeText, Content: req.Content}
	}

	msg, err := h.engine.SendMessage(c.Request.Context(), userID, chatID, in)
	if err != nil {
		h.emitAudit(c, "ERROR", "message rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

// EditMessage replaces the text of a message the caller authored.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.engine.EditMessage(c.Request.Context(), userID, messageID, req.Content)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// DeleteMessage removes a message for everyone.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	if err := h.engine.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		h.emitAudit(c, "ERROR", "message deletion rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message deleted")
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
