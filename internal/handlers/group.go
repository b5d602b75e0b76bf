package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/telemetry"
)

// GroupHandler manages group membership and admin endpoints.
type GroupHandler struct {
	engine LifecycleEngine
	audit  *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(engine LifecycleEngine, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{engine: engine, audit: audit}
}

// CreateGroup handles POST /groups. The request is multipart so an optional
// group picture can ride along with the name and member list.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetString("userID")

	name := c.PostForm("name")
	memberIDs := c.PostFormArray("member_ids")

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
		return
	}
	defer closeImage()

	group, err := h.engine.CreateGroup(c.Request.Context(), userID, chatengine.CreateGroupInput{
		Name:      name,
		MemberIDs: memberIDs,
		Image:     image,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "group creation rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, group)
}

// UpdateGroup handles PUT /groups/:chat_id. Name and image are both
// optional; omitting a field leaves it unchanged.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	name := c.PostForm("name")
	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
		return
	}
	defer closeImage()

	group, err := h.engine.UpdateGroup(c.Request.Context(), userID, chatID, chatengine.UpdateGroupInput{
		Name:  name,
		Image: image,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group updated")
	c.JSON(http.StatusOK, group)
}

// AddMember handles POST /groups/:chat_id/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.engine.AddMember(c.Request.Context(), userID, req.UserID, chatID)
	if err != nil {
		h.emitAudit(c, "ERROR", "member addition rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Member added")
	c.JSON(http.StatusOK, group)
}

// RemoveMember handles DELETE /groups/:chat_id/members/:user_id. A member
// may remove themselves; removing anyone else requires admin.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	chatID := c.Param("chat_id")
	targetID := c.Param("user_id")
	userID := c.GetString("userID")

	group, err := h.engine.RemoveMember(c.Request.Context(), userID, targetID, chatID)
	if err != nil {
		h.emitAudit(c, "ERROR", "member removal rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Member removed")
	if group == nil {
		// Last member left and the chat was purged.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, group)
}

// PromoteAdmin handles POST /groups/:chat_id/admins/:user_id.
func (h *GroupHandler) PromoteAdmin(c *gin.Context) {
	chatID := c.Param("chat_id")
	targetID := c.Param("user_id")
	userID := c.GetString("userID")

	group, err := h.engine.PromoteAdmin(c.Request.Context(), userID, targetID, chatID)
	if err != nil {
		h.emitAudit(c, "ERROR", "admin promotion rejected")
		writeEngineError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Admin promoted")
	c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// formUpload extracts an optional multipart file field as an engine upload.
// The returned close func is always safe to call.
func formUpload(c *gin.Context, field string) (*chatengine.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*chatengine.Upload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	upload := &chatengine.Upload{
		Body:        file,
		ContentType: header.Header.Get("Content-Type"),
	}
	return upload, func() { file.Close() }, nil
}
