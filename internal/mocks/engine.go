package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/models"
)

type EngineMock struct {
	mock.Mock
}

func (m *EngineMock) CreateDirectChat(ctx context.Context, requesterID, otherID string) (models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, otherID)
	var chat models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) CreateGroup(ctx context.Context, requesterID string, in chatengine.CreateGroupInput) (models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, in)
	var chat models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) AddMember(ctx context.Context, requesterID, targetID, chatID string) (models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, targetID, chatID)
	var chat models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) PromoteAdmin(ctx context.Context, requesterID, targetID, chatID string) (models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, targetID, chatID)
	var chat models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) RemoveMember(ctx context.Context, requesterID, targetID, chatID string) (*models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, targetID, chatID)
	var chat *models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(*models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) UpdateGroup(ctx context.Context, requesterID, chatID string, in chatengine.UpdateGroupInput) (models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, chatID, in)
	var chat models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) DeleteChat(ctx context.Context, requesterID, chatID string) error {
	args := m.Called(ctx, requesterID, chatID)
	return args.Error(0)
}

func (m *EngineMock) GetChat(ctx context.Context, requesterID, chatID string) (models.ChatGroup, error) {
	args := m.Called(ctx, requesterID, chatID)
	var chat models.ChatGroup
	if val := args.Get(0); val != nil {
		chat = val.(models.ChatGroup)
	}
	return chat, args.Error(1)
}

func (m *EngineMock) ListChats(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	args := m.Called(ctx, userID)
	var chats []models.ChatGroup
	if val := args.Get(0); val != nil {
		chats = val.([]models.ChatGroup)
	}
	return chats, args.Error(1)
}

func (m *EngineMock) SendMessage(ctx context.Context, authorID, chatID string, in chatengine.SendMessageInput) (models.Message, error) {
	args := m.Called(ctx, authorID, chatID, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *EngineMock) ChatMessages(ctx context.Context, requesterID, chatID string, limit, skip int) ([]models.Message, error) {
	args := m.Called(ctx, requesterID, chatID, limit, skip)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *EngineMock) MarkRead(ctx context.Context, requesterID, chatID string) error {
	args := m.Called(ctx, requesterID, chatID)
	return args.Error(0)
}

func (m *EngineMock) EditMessage(ctx context.Context, requesterID, messageID, newContent string) (models.Message, error) {
	args := m.Called(ctx, requesterID, messageID, newContent)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *EngineMock) DeleteMessage(ctx context.Context, requesterID, messageID string) error {
	args := m.Called(ctx, requesterID, messageID)
	return args.Error(0)
}
