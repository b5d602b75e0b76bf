package chatengine

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fabricioGuac/chat-fusion/internal/blob"
	"github.com/fabricioGuac/chat-fusion/internal/fanout"
	"github.com/fabricioGuac/chat-fusion/internal/models"
	"github.com/fabricioGuac/chat-fusion/internal/presence"
	"github.com/fabricioGuac/chat-fusion/internal/storage"
)

const maxGroupNameLength = 50

// Notifier delivers typed events to subscribers. The engine treats delivery
// as fire-and-forget: by the time an event is handed over, the mutation it
// describes is already durable.
type Notifier interface {
	NotifyUser(userID string, event fanout.Event)
	NotifyChat(chatID string, event fanout.Event)
}

// Upload carries media content attached to a request.
type Upload struct {
	Body        io.Reader
	ContentType string
}

// CreateGroupInput describes a new group chat.
type CreateGroupInput struct {
	Name      string
	MemberIDs []string
	Image     *Upload
}

// UpdateGroupInput carries the mutable group details. A blank name leaves
// the name untouched; an image is applied only if the group has none yet.
type UpdateGroupInput struct {
	Name  string
	Image *Upload
}

// Engine owns chat-group state. It is the only component allowed to mutate
// membership, admin and unread fields, and it serializes every mutation per
// chat id.
type Engine struct {
	chats    storage.ChatRepository
	messages storage.MessageRepository
	users    storage.UserDirectory
	blobs    blob.Store
	presence *presence.Tracker
	notifier Notifier
	locks    *keyedMutex
	log      *logrus.Entry
}

// New wires an Engine against its collaborators.
func New(chats storage.ChatRepository, messages storage.MessageRepository, users storage.UserDirectory,
	blobs blob.Store, tracker *presence.Tracker, notifier Notifier, log *logrus.Entry) *Engine {
	return &Engine{
		chats:    chats,
		messages: messages,
		users:    users,
		blobs:    blobs,
		presence: tracker,
		notifier: notifier,
		locks:    newKeyedMutex(),
		log:      log,
	}
}

// CreateDirectChat returns the existing direct chat between the two users or
// creates a new one. The idempotent path emits no events.
func (e *Engine) CreateDirectChat(ctx context.Context, requesterID, otherID string) (models.ChatGroup, error) {
	if requesterID == otherID {
		return models.ChatGroup{}, errValidation("cannot create a chat with yourself")
	}
	if err := e.requireUser(ctx, otherID); err != nil {
		return models.ChatGroup{}, err
	}

	// The pair key serializes concurrent creations of the same direct chat.
	unlock := e.locks.lock("direct:" + storage.DirectKey(requesterID, otherID))
	defer unlock()

	existing, err := e.chats.FindDirectChat(ctx, requesterID, otherID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrChatNotFound) {
		return models.ChatGroup{}, errStorage("look up direct chat", err)
	}

	chat := models.ChatGroup{
		ID:           uuid.NewString(),
		IsGroup:      false,
		CreatedBy:    requesterID,
		UnreadCounts: map[string]int{},
	}
	chat.AddMember(requesterID)
	chat.AddMember(otherID)

	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return models.ChatGroup{}, errStorage("save chat", err)
	}

	for _, memberID := range chat.Members {
		e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventAddChat, ChatID: chat.ID, Payload: chat})
	}
	return chat, nil
}

// CreateGroup creates a group chat with the requester as sole initial admin.
// Every member id must resolve; otherwise the whole operation aborts.
func (e *Engine) CreateGroup(ctx context.Context, requesterID string, in CreateGroupInput) (models.ChatGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.ChatGroup{}, errValidation("group name must not be blank")
	}
	if utf8.RuneCountInString(name) > maxGroupNameLength {
		return models.ChatGroup{}, errValidation("group name must not exceed 50 characters")
	}

	for _, memberID := range in.MemberIDs {
		if err := e.requireUser(ctx, memberID); err != nil {
			return models.ChatGroup{}, err
		}
	}

	chat := models.ChatGroup{
		ID:           uuid.NewString(),
		IsGroup:      true,
		Name:         name,
		CreatedBy:    requesterID,
		UnreadCounts: map[string]int{},
	}
	chat.AddMember(requesterID)
	chat.AddAdmin(requesterID)
	for _, memberID := range in.MemberIDs {
		chat.AddMember(memberID)
	}

	if in.Image != nil {
		ref, err := e.blobs.Put(ctx, chat.ID+"/pfp", in.Image.Body, in.Image.ContentType)
		if err != nil {
			return models.ChatGroup{}, errStorage("upload group image", err)
		}
		chat.ImageRef = ref
	}

	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return models.ChatGroup{}, errStorage("save chat", err)
	}

	for _, memberID := range chat.Members {
		e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventAddChat, ChatID: chat.ID, Payload: chat})
	}
	return chat, nil
}

// AddMember adds a user to a group. Admin only.
func (e *Engine) AddMember(ctx context.Context, requesterID, targetID, chatID string) (models.ChatGroup, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return models.ChatGroup{}, err
	}
	if !chat.HasAdmin(requesterID) {
		return models.ChatGroup{}, errForbidden("non-admins can't add users to the group")
	}
	if err := e.requireUser(ctx, targetID); err != nil {
		return models.ChatGroup{}, err
	}
	if chat.HasMember(targetID) {
		return models.ChatGroup{}, errAlreadyExists("user is already a member of this group")
	}

	chat.AddMember(targetID)
	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return models.ChatGroup{}, errStorage("save chat", err)
	}

	e.notifier.NotifyUser(targetID, fanout.Event{Type: fanout.EventAddChat, ChatID: chat.ID, Payload: chat})
	for _, memberID := range chat.Members {
		if memberID == targetID {
			continue
		}
		e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventAddMember, ChatID: chat.ID, Payload: targetID})
	}
	return chat, nil
}

// PromoteAdmin grants admin privileges to a current member. Admin only.
func (e *Engine) PromoteAdmin(ctx context.Context, requesterID, targetID, chatID string) (models.ChatGroup, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return models.ChatGroup{}, err
	}
	if !chat.HasAdmin(requesterID) {
		return models.ChatGroup{}, errForbidden("non-admins can't give admin privileges")
	}
	if !chat.HasMember(targetID) {
		return models.ChatGroup{}, errNotAMember("user is not a member of this group")
	}
	if chat.HasAdmin(targetID) {
		return models.ChatGroup{}, errAlreadyAdmin("user is already an admin")
	}

	chat.AddAdmin(targetID)
	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return models.ChatGroup{}, errStorage("save chat", err)
	}

	e.notifier.NotifyUser(targetID, fanout.Event{Type: fanout.EventAddAdmin, ChatID: chat.ID, Payload: chat.ID})
	return chat, nil
}

// RemoveMember removes a user from a group. Admins may remove anyone;
// non-admins may only remove themselves. Emptying the member set deletes the
// chat, signalled by a nil result. If the removal leaves the admin set
// empty, the lexicographically smallest remaining member is promoted.
func (e *Engine) RemoveMember(ctx context.Context, requesterID, targetID, chatID string) (*models.ChatGroup, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, errForbidden("operation only allowed for group chats")
	}
	if !chat.HasMember(targetID) {
		return nil, errNotAMember("user is not a member of this group")
	}
	selfRemoval := requesterID == targetID && chat.HasMember(requesterID)
	if !chat.HasAdmin(requesterID) && !selfRemoval {
		return nil, errForbidden("non-admins can only remove themselves")
	}

	chat.RemoveMember(targetID)

	if len(chat.Members) == 0 {
		if err := e.purgeChat(ctx, chat.ID); err != nil {
			return nil, err
		}
		e.notifier.NotifyUser(targetID, fanout.Event{Type: fanout.EventRemoveChat, ChatID: chat.ID, Payload: chat.ID})
		return nil, nil
	}

	// Members are kept sorted, so the first one is the lowest id.
	var promotedID string
	if len(chat.Admins) == 0 {
		promotedID = chat.Members[0]
		chat.AddAdmin(promotedID)
	}

	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return nil, errStorage("save chat", err)
	}

	e.notifier.NotifyUser(targetID, fanout.Event{Type: fanout.EventRemoveChat, ChatID: chat.ID, Payload: chat.ID})
	if promotedID != "" {
		e.notifier.NotifyUser(promotedID, fanout.Event{Type: fanout.EventAddAdmin, ChatID: chat.ID, Payload: chat.ID})
	}
	for _, memberID := range chat.Members {
		e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventRemoveMember, ChatID: chat.ID, Payload: targetID})
	}
	return &chat, nil
}

// UpdateGroup changes the group name and/or image. Any member may update;
// the image is first-write-wins and never overwritten.
func (e *Engine) UpdateGroup(ctx context.Context, requesterID, chatID string, in UpdateGroupInput) (models.ChatGroup, error) {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return models.ChatGroup{}, err
	}
	if !chat.IsGroup {
		return models.ChatGroup{}, errForbidden("operation only allowed for group chats")
	}
	if !chat.HasMember(requesterID) {
		return models.ChatGroup{}, errForbidden("non-members can't change the group details")
	}

	changed := map[string]interface{}{}

	if name := strings.TrimSpace(in.Name); name != "" {
		if utf8.RuneCountInString(name) > maxGroupNameLength {
			return models.ChatGroup{}, errValidation("group name must not exceed 50 characters")
		}
		chat.Name = name
		changed["name"] = name
	}

	if in.Image != nil {
		ref, err := e.blobs.Put(ctx, chat.ID+"/pfp", in.Image.Body, in.Image.ContentType)
		if err != nil {
			return models.ChatGroup{}, errStorage("upload group image", err)
		}
		if chat.ImageRef == "" {
			chat.ImageRef = ref
			changed["image_ref"] = ref
		}
	}

	if err := e.chats.SaveChat(ctx, &chat); err != nil {
		return models.ChatGroup{}, errStorage("save chat", err)
	}

	if len(changed) > 0 {
		for _, memberID := range chat.Members {
			e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventUpdateChat, ChatID: chat.ID, Payload: changed})
		}
	}
	return chat, nil
}

// DeleteChat deletes a chat with all its messages and media. Group chats
// require an admin; direct chats any member.
func (e *Engine) DeleteChat(ctx context.Context, requesterID, chatID string) error {
	unlock := e.locks.lock(chatID)
	defer unlock()

	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.IsGroup {
		if !chat.HasAdmin(requesterID) {
			return errForbidden("non-admin users cannot delete group chats")
		}
	} else if !chat.HasMember(requesterID) {
		return errForbidden("you do not have permission to delete this chat")
	}

	if err := e.purgeChat(ctx, chat.ID); err != nil {
		return err
	}

	for _, memberID := range chat.Members {
		e.notifier.NotifyUser(memberID, fanout.Event{Type: fanout.EventRemoveChat, ChatID: chat.ID, Payload: chat.ID})
	}
	return nil
}

// GetChat returns a chat to one of its members.
func (e *Engine) GetChat(ctx context.Context, requesterID, chatID string) (models.ChatGroup, error) {
	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return models.ChatGroup{}, err
	}
	if !chat.HasMember(requesterID) {
		return models.ChatGroup{}, errForbidden("you are not a member of this chat")
	}
	return chat, nil
}

// ListChats returns every chat the user belongs to.
func (e *Engine) ListChats(ctx context.Context, userID string) ([]models.ChatGroup, error) {
	chats, err := e.chats.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, errStorage("list chats", err)
	}
	return chats, nil
}

// IsMember reports chat membership, used by the websocket handshake.
func (e *Engine) IsMember(ctx context.Context, userID, chatID string) (bool, error) {
	chat, err := e.loadChat(ctx, chatID)
	if err != nil {
		return false, err
	}
	return chat.HasMember(userID), nil
}

// purgeChat removes the chat, its message log and its media. Media cleanup
// is best-effort and never blocks the logical deletion.
func (e *Engine) purgeChat(ctx context.Context, chatID string) error {
	if err := e.messages.DeleteAllByChatID(ctx, chatID); err != nil {
		return errStorage("purge messages", err)
	}
	if err := e.chats.DeleteChat(ctx, chatID); err != nil && !errors.Is(err, storage.ErrChatNotFound) {
		return errStorage("delete chat", err)
	}
	if err := e.blobs.DeletePrefix(ctx, chatID+"/"); err != nil {
		e.log.WithError(err).WithField("chat_id", chatID).Warn("chat media cleanup failed")
	}
	e.presence.DropChat(chatID)
	return nil
}

func (e *Engine) loadChat(ctx context.Context, chatID string) (models.ChatGroup, error) {
	chat, err := e.chats.GetChat(ctx, chatID)
	if errors.Is(err, storage.ErrChatNotFound) {
		return models.ChatGroup{}, errNotFound("chat not found by id " + chatID)
	}
	if err != nil {
		return models.ChatGroup{}, errStorage("load chat", err)
	}
	return chat, nil
}

func (e *Engine) requireUser(ctx context.Context, userID string) error {
	exists, err := e.users.Exists(ctx, userID)
	if err != nil {
		return errStorage("look up user", err)
	}
	if !exists {
		return errNotFound("user not found by id " + userID)
	}
	return nil
}
