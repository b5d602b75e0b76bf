package chatengine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fabricioGuac/chat-fusion/internal/fanout"
	"github.com/fabricioGuac/chat-fusion/internal/models"
	"github.com/fabricioGuac/chat-fusion/internal/storage"
)

const defaultMessagePageSize = 50

// SendMessageInput describes a new message. Text messages carry Content,
// file messages carry File.
type SendMessageInput struct {
	Type    string
	Content string
	File    *Upload
}

// SendMessage appends a message to the chat. Members live on the chat at
// send time get an immediate read mark; everyone else gets an unread bump
// and an updateUnreadCounts notification.
func (e *Engine) SendMessage(ctx context.Context, authorID, chatID string, in SendMessageInput) (models.Message, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return models.Message{}, err
	}
	if !chat.HasMember(authorID) {
		return models.Message{}, errForbidden("you are not a member of this chat")
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		AuthorID:  authorID,
		Type:      in.Type,
		CreatedAt: time.Now().UTC(),
	}

	switch in.Type {
	case models.MessageTypeText:
		msg.Content = strings.TrimSpace(in.Content)
		if msg.Content == "" {
			return models.Message{}, errValidation("message content cannot be empty")
		}
	case models.MessageTypeFile:
		if in.File == nil {
			return models.Message{}, errValidation("file message requires a file")
		}
		ref, err := e.blobs.Put(ctx, chat.ID+"/"+msg.ID, in.File.Body, in.File.ContentType)
		if err != nil {
			return models.Message{}, errStorage("upload message file", err)
		}
		msg.Content = ref
	default:
		return models.Message{}, errValidation("unsupported message type " + in.Type)
	}

	var offline []string
	for _, memberID := range chat.Members {
		if memberID == authorID {
			continue
		}
		if e.presence.Connected(chat.ID, memberID) {
			msg.MarkReadBy(memberID)
		} else {
			chat.UnreadCounts[memberID]++
			offline = append(offline, memberID)
		}
	}

	if err := e.messages.CreateMessage(ctx, &msg); err != nil {
		return models.Message{}, errStorage("save message", err)
	}
	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return models.Message{}, errStorage("save chat", err)
	}

	for _, memberID := range offline {
		e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventUpdateUnreadCounts, ChatID: chat.ID, Payload: chat.ID})
	}
	e.notifier.NotifyChat(chat.ID, fanout.Event{Type: fanout.EventMessageSend, ChatID: chat.ID, Payload: msg})
	return msg, nil
}

// ChatMessages returns a page of the chat's message log. Fetching marks
// pending messages read and resets the caller's unread counter, so opening a
// chat clears its badge.
func (e *Engine) ChatMessages(ctx context.Context, requesterID, chatID string, limit, skip int) ([]models.Message, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(requesterID) {
		return nil, errForbidden("you are not a member of this chat and cannot view its messages")
	}

	if chat.UnreadCounts[requesterID] > 0 {
		if err := e.applyMarkRead(ctx, &chat, requesterID); err != nil {
			return nil, err
		}
	}

	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if skip < 0 {
		skip = 0
	}
	msgs, err := e.messages.ListMessages(ctx, chat.ID, limit, skip)
	if err != nil {
		return nil, errStorage("list messages", err)
	}
	return msgs, nil
}

// MarkRead acknowledges every pending message in the chat for the user and
// resets their unread counter as one logical step.
func (e *Engine) MarkRead(ctx context.Context, requesterID, chatID string) error {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(requesterID) {
		return errForbidden("you are not a member of this chat")
	}
	return e.applyMarkRead(ctx, &chat, requesterID)
}

// applyMarkRead must run under the chat lock: the read marks and the counter
// reset form a single logical step that no concurrent reader may observe
// half-applied.
func (e *Engine) applyMarkRead(ctx context.Context, chat *models.ChatGroup, userID string) error {
	if _, err := e.messages.MarkAllRead(ctx, chat.ID, userID); err != nil {
		return errStorage("mark messages read", err)
	}
	chat.UnreadCounts[userID] = 0
	if err := e.chats.SaveChat(ctx, chat); err != nil {
		return errStorage("save chat", err)
	}
	return nil
}

// EditMessage replaces the content of a text message. Author only.
func (e *Engine) EditMessage(ctx context.Context, requesterID, messageID, newContent string) (models.Message, error) {
	msg, err := e.loadMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}

	unlock := e.locks.lock(msg.ChatID)
	defer unlock()

	if msg.AuthorID != requesterID {
		return models.Message{}, errForbidden("cannot update messages from another user")
	}
	if msg.Type != models.MessageTypeText {
		return models.Message{}, errValidation("only text messages can be edited")
	}
	content := strings.TrimSpace(newContent)
	if content == "" {
		return models.Message{}, errValidation("message content cannot be empty")
	}

	if err := e.messages.UpdateContent(ctx, msg.ID, content); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return models.Message{}, errNotFound("message not found by id " + messageID)
		}
		return models.Message{}, errStorage("update message", err)
	}
	msg.Content = content

	e.notifier.NotifyChat(msg.ChatID, fanout.Event{Type: fanout.EventMessageEdit, ChatID: msg.ChatID, Payload: msg})
	return msg, nil
}

// DeleteMessage removes a message. Allowed for the author, or for a group
// admin. File content is cleaned up best-effort.
func (e *Engine) DeleteMessage(ctx context.Context, requesterID, messageID string) error {
	msg, err := e.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(msg.ChatID)
	defer unlock()

	chat, err := e.loadChat(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	isAuthor := msg.AuthorID == requesterID
	isAdmin := chat.IsGroup && chat.HasAdmin(requesterID)
	if !isAuthor && !isAdmin {
		return errForbidden("cannot delete messages from another user")
	}

	if msg.Type == models.MessageTypeFile {
		if err := e.blobs.Delete(ctx, chat.ID+"/"+msg.ID); err != nil {
			e.log.WithError(err).WithField("message_id", msg.ID).Warn("message file cleanup failed")
		}
	}

	if err := e.messages.DeleteMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return errNotFound("message not found by id " + messageID)
		}
		return errStorage("delete message", err)
	}

	e.notifier.NotifyChat(msg.ChatID, fanout.Event{Type: fanout.EventMessageDelete, ChatID: msg.ChatID, Payload: msg.ID})
	return nil
}

func (e *Engine) loadMessage(ctx context.Context, messageID string) (models.Message, error) {
	msg, err := e.messages.GetMessage(ctx, messageID)
	if errors.Is(err, storage.ErrMessageNotFound) {
		return models.Message{}, errNotFound("message not found by id " + messageID)
	}
	if err != nil {
		return models.Message{}, errStorage("load message", err)
	}
	return msg, nil
}
