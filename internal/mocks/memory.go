package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/fabricioGuac/chat-fusion/internal/models"
	"github.com/fabricioGuac/chat-fusion/internal/storage"
)

// ChatStore is an in-memory storage.ChatRepository for engine tests.
type ChatStore struct {
	mu    sync.Mutex
	chats map[string]models.ChatGroup
}

func NewChatStore() *ChatStore {
	return &ChatStore{chats: map[string]models.ChatGroup{}}
}

func (s *ChatStore) GetChat(ctx context.Context, chatID string) (models.ChatGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return models.ChatGroup{}, storage.ErrChatNotFound
	}
	return copyChat(chat), nil
}

func (s *ChatStore) FindDirectChat(ctx context.Context, userID1, userID2 string) (models.ChatGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.chats {
		if chat.IsGroup {
			continue
		}
		if chat.HasMember(userID1) && chat.HasMember(userID2) {
			return copyChat(chat), nil
		}
	}
	return models.ChatGroup{}, storage.ErrChatNotFound
}

func (s *ChatStore) SaveChat(ctx context.Context, chat *models.ChatGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chat.ID] = copyChat(*chat)
	return nil
}

func (s *ChatStore) DeleteChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; !ok {
		return storage.ErrChatNotFound
	}
	delete(s.chats, chatID)
	return nil
}

func (s *ChatStore) ListChatsForUser(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatGroup
	for _, chat := range s.chats {
		if chat.HasMember(userID) {
			out = append(out, copyChat(chat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Has reports whether a chat id is present, bypassing the repository surface.
func (s *ChatStore) Has(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[chatID]
	return ok
}

// MessageStore is an in-memory storage.MessageRepository for engine tests.
type MessageStore struct {
	mu       sync.Mutex
	messages map[string]models.Message
	order    []string
}

func NewMessageStore() *MessageStore {
	return &MessageStore{messages: map[string]models.Message{}}
}

func (s *MessageStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = copyMessage(*msg)
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *MessageStore) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return models.Message{}, storage.ErrMessageNotFound
	}
	return copyMessage(msg), nil
}

func (s *MessageStore) ListMessages(ctx context.Context, chatID string, limit, skip int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, id := range s.order {
		msg, ok := s.messages[id]
		if !ok || msg.ChatID != chatID {
			continue
		}
		out = append(out, copyMessage(msg))
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MessageStore) UpdateContent(ctx context.Context, messageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.Content = content
	s.messages[messageID] = msg
	return nil
}

func (s *MessageStore) MarkAllRead(ctx context.Context, chatID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for id, msg := range s.messages {
		if msg.ChatID != chatID || msg.AuthorID == userID || msg.ReadByUser(userID) {
			continue
		}
		msg.MarkReadBy(userID)
		s.messages[id] = msg
		marked++
	}
	return marked, nil
}

func (s *MessageStore) DeleteMessage(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return storage.ErrMessageNotFound
	}
	delete(s.messages, messageID)
	return nil
}

func (s *MessageStore) DeleteAllByChatID(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, msg := range s.messages {
		if msg.ChatID == chatID {
			delete(s.messages, id)
		}
	}
	return nil
}

func (s *MessageStore) CountUnread(ctx context.Context, chatID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, msg := range s.messages {
		if msg.ChatID == chatID && msg.AuthorID != userID && !msg.ReadByUser(userID) {
			count++
		}
	}
	return count, nil
}

// DirectoryStub is a storage.UserDirectory backed by a fixed user set.
type DirectoryStub struct {
	Users map[string]models.User
}

func NewDirectoryStub(userIDs ...string) *DirectoryStub {
	users := map[string]models.User{}
	for _, id := range userIDs {
		users[id] = models.User{ID: id, Username: id}
	}
	return &DirectoryStub{Users: users}
}

func (d *DirectoryStub) Exists(ctx context.Context, userID string) (bool, error) {
	_, ok := d.Users[userID]
	return ok, nil
}

func (d *DirectoryStub) GetUser(ctx context.Context, userID string) (models.User, error) {
	user, ok := d.Users[userID]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

func (d *DirectoryStub) BulkUsers(ctx context.Context, userIDs []string) ([]models.User, error) {
	out := make([]models.User, 0, len(userIDs))
	for _, id := range userIDs {
		if user, ok := d.Users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func copyChat(chat models.ChatGroup) models.ChatGroup {
	out := chat
	out.Members = append([]string(nil), chat.Members...)
	out.Admins = append([]string(nil), chat.Admins...)
	out.UnreadCounts = map[string]int{}
	for k, v := range chat.UnreadCounts {
		out.UnreadCounts[k] = v
	}
	return out
}

func copyMessage(msg models.Message) models.Message {
	out := msg
	out.ReadBy = append([]string(nil), msg.ReadBy...)
	return out
}
