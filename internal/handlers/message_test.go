package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/mocks"
	"github.com/fabricioGuac/chat-fusion/internal/models"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/chats/:chat_id/messages", handler.GetMessages)
	r.POST("/chats/:chat_id/messages", handler.PostMessage)
	r.PUT("/chats/:chat_id/messages/:message_id", handler.EditMessage)
	r.DELETE("/chats/:chat_id/messages/:message_id", handler.DeleteMessage)
	return r
}

func TestGetMessagesPassesPaging(t *testing.T) {
	engine := new(mocks.EngineMock)
	handler := NewMessageHandler(engine, nil)
	router := setupMessageRouter(handler)

	engine.On("ChatMessages", mock.Anything, "u1", "c1", 10, 20).
		Return([]models.Message{{ID: "m1", ChatID: "c1"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/c1/messages?limit=10&skip=20", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	engine.AssertExpectations(t)
}

func TestPostTextMessageSuccess(t *testing.T) {
	engine := new(mocks.EngineMock)
	handler := NewMessageHandler(engine, nil)
	router := setupMessageRouter(handler)

	engine.On("SendMessage", mock.Anything, "u1", "c1", chatengine.SendMessageInput{
		Type:    models.MessageTypeText,
		Content: "hi",
	}).Return(models.Message{ID: "m1", ChatID: "c1", AuthorID: "u1", Content: "hi"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/c1/messages", bytes.NewBufferString(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "m1", resp.ID)
	engine.AssertExpectations(t)
}

func TestPostFileMessageSuccess(t *testing.T) {
	engine := new(mocks.EngineMock)
	handler := NewMessageHandler(engine, nil)
	router := setupMessageRouter(handler)

	engine.On("SendMessage", mock.Anything, "u1", "c1", mock.MatchedBy(func(in chatengine.SendMessageInput) bool {
		return in.Type == models.MessageTypeFile && in.File != nil
	})).Return(models.Message{ID: "m2", ChatID: "c1", Type: models.MessageTypeFile}, nil).Once()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/chats/c1/messages", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	engine.AssertExpectations(t)
}

func TestPostFileMessageMissingFile(t *testing.T) {
	handler := NewMessageHandler(new(mocks.EngineMock), nil)
	router := setupMessageRouter(handler)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/chats/c1/messages", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditMessageForbidden(t *testing.T) {
	engine := new(mocks.EngineMock)
	handler := NewMessageHandler(engine, nil)
	router := setupMessageRouter(handler)

	engine.On("EditMessage", mock.Anything, "u1", "m1", "edited").
		Return(models.Message{}, &chatengine.Error{Kind: chatengine.KindForbidden, Message: "only the author may edit"}).Once()

	req := httptest.NewRequest(http.MethodPut, "/chats/c1/messages/m1", bytes.NewBufferString(`{"content":"edited"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	engine.AssertExpectations(t)
}

func TestDeleteMessageSuccess(t *testing.T) {
	engine := new(mocks.EngineMock)
	handler := NewMessageHandler(engine, nil)
	router := setupMessageRouter(handler)

	engine.On("DeleteMessage", mock.Anything, "u1", "m1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/c1/messages/m1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	engine.AssertExpectations(t)
}
