package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/models"
)

// LifecycleEngine is the surface the HTTP layer needs from the chat engine.
// Declared here so handler tests can swap in a mock.
type LifecycleEngine interface {
	CreateDirectChat(ctx context.Context, requesterID, otherID string) (models.ChatGroup, error)
	CreateGroup(ctx context.Context, requesterID string, in chatengine.CreateGroupInput) (models.ChatGroup, error)
	AddMember(ctx context.Context, requesterID, targetID, chatID string) (models.ChatGroup, error)
	PromoteAdmin(ctx context.Context, requesterID, targetID, chatID string) (models.ChatGroup, error)
	RemoveMember(ctx context.Context, requesterID, targetID, chatID string) (*models.ChatGroup, error)
	UpdateGroup(ctx context.Context, requesterID, chatID string, in chatengine.UpdateGroupInput) (models.ChatGroup, error)
	DeleteChat(ctx context.Context, requesterID, chatID string) error
	GetChat(ctx context.Context, requesterID, chatID string) (models.ChatGroup, error)
	ListChats(ctx context.Context, userID string) ([]models.ChatGroup, error)

	SendMessage(ctx context.Context, authorID, chatID string, in chatengine.SendMessageInput) (models.Message, error)
	ChatMessages(ctx context.Context, requesterID, chatID string, limit, skip int) ([]models.Message, error)
	MarkRead(ctx context.Context, requesterID, chatID string) error
	EditMessage(ctx context.Context, requesterID, messageID, newContent string) (models.Message, error)
	DeleteMessage(ctx context.Context, requesterID, messageID string) error
}

// writeEngineError maps an engine failure kind onto an HTTP status.
func writeEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch chatengine.KindOf(err) {
	case chatengine.KindNotFound:
		status = http.StatusNotFound
	case chatengine.KindForbidden:
		status = http.StatusForbidden
	case chatengine.KindValidation, chatengine.KindNotAMember:
		status = http.StatusBadRequest
	case chatengine.KindAlreadyExists, chatengine.KindAlreadyAdmin:
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
