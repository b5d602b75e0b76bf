package chatengine_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricioGuac/chat-fusion/internal/blob"
	"github.com/fabricioGuac/chat-fusion/internal/chatengine"
	"github.com/fabricioGuac/chat-fusion/internal/fanout"
	"github.com/fabricioGuac/chat-fusion/internal/mocks"
	"github.com/fabricioGuac/chat-fusion/internal/presence"
)

type engineFixture struct {
	engine   *chatengine.Engine
	chats    *mocks.ChatStore
	messages *mocks.MessageStore
	tracker  *presence.Tracker
	notifier *mocks.NotifierRecorder
}

func newEngineFixture(t *testing.T, userIDs ...string) *engineFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logger.WithField("test", t.Name())

	chats := mocks.NewChatStore()
	messages := mocks.NewMessageStore()
	tracker := presence.NewTracker()
	notifier := mocks.NewNotifierRecorder()

	engine := chatengine.New(chats, messages, mocks.NewDirectoryStub(userIDs...),
		blob.NewStore("", log), tracker, notifier, log)

	return &engineFixture{
		engine:   engine,
		chats:    chats,
		messages: messages,
		tracker:  tracker,
		notifier: notifier,
	}
}

func eventTypes(events []mocks.NotifiedEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Event.Type)
	}
	return out
}

func TestCreateDirectChatIdempotent(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	ctx := context.Background()

	first, err := f.engine.CreateDirectChat(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, first.IsGroup)
	assert.ElementsMatch(t, []string{"alice", "bob"}, first.Members)

	// Both members get exactly one addChat.
	require.Len(t, f.notifier.Events(), 2)
	assert.Equal(t, []string{fanout.EventAddChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("alice"))))
	assert.Equal(t, []string{fanout.EventAddChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("bob"))))

	f.notifier.Reset()

	second, err := f.engine.CreateDirectChat(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Empty(t, f.notifier.Events(), "idempotent path must not emit events")
}

func TestCreateDirectChatWithSelf(t *testing.T) {
	f := newEngineFixture(t, "alice")

	_, err := f.engine.CreateDirectChat(context.Background(), "alice", "alice")
	require.Error(t, err)
	assert.Equal(t, chatengine.KindValidation, chatengine.KindOf(err))
}

func TestCreateDirectChatUnknownUser(t *testing.T) {
	f := newEngineFixture(t, "alice")

	_, err := f.engine.CreateDirectChat(context.Background(), "alice", "ghost")
	require.Error(t, err)
	assert.Equal(t, chatengine.KindNotFound, chatengine.KindOf(err))
}

func TestCreateGroupRequesterIsSoleAdmin(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob", "carol")

	group, err := f.engine.CreateGroup(context.Background(), "alice", chatengine.CreateGroupInput{
		Name:      "  weekend plans  ",
		MemberIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	assert.True(t, group.IsGroup)
	assert.Equal(t, "weekend plans", group.Name)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, group.Members)
	assert.Equal(t, []string{"alice"}, group.Admins)

	for _, id := range group.Members {
		assert.Equal(t, []string{fanout.EventAddChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination(id))))
	}
}

func TestCreateGroupNameValidation(t *testing.T) {
	f := newEngineFixture(t, "alice")
	ctx := context.Background()

	_, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{Name: "   "})
	assert.Equal(t, chatengine.KindValidation, chatengine.KindOf(err))

	_, err = f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{Name: strings.Repeat("x", 51)})
	assert.Equal(t, chatengine.KindValidation, chatengine.KindOf(err))

	// 50 runes exactly is fine, also for multi-byte names.
	_, err = f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{Name: strings.Repeat("ü", 50)})
	assert.NoError(t, err)
}

func TestCreateGroupUnknownMemberAborts(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")

	_, err := f.engine.CreateGroup(context.Background(), "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob", "ghost"},
	})
	require.Error(t, err)
	assert.Equal(t, chatengine.KindNotFound, chatengine.KindOf(err))
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	_, err = f.engine.AddMember(ctx, "bob", "carol", group.ID)
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))

	f.notifier.Reset()

	updated, err := f.engine.AddMember(ctx, "alice", "carol", group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, updated.Members)

	// The target learns about the chat, everyone else about the member.
	assert.Equal(t, []string{fanout.EventAddChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("carol"))))
	assert.Equal(t, []string{fanout.EventAddMember}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("alice"))))
	assert.Equal(t, []string{fanout.EventAddMember}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("bob"))))
}

func TestAddMemberAlreadyPresent(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	_, err = f.engine.AddMember(ctx, "alice", "bob", group.ID)
	assert.Equal(t, chatengine.KindAlreadyExists, chatengine.KindOf(err))
}

func TestPromoteAdmin(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	_, err = f.engine.PromoteAdmin(ctx, "bob", "bob", group.ID)
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))

	_, err = f.engine.PromoteAdmin(ctx, "alice", "carol", group.ID)
	assert.Equal(t, chatengine.KindNotAMember, chatengine.KindOf(err))

	f.notifier.Reset()

	updated, err := f.engine.PromoteAdmin(ctx, "alice", "bob", group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, updated.Admins)
	assert.Equal(t, []string{fanout.EventAddAdmin}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("bob"))))

	_, err = f.engine.PromoteAdmin(ctx, "alice", "bob", group.ID)
	assert.Equal(t, chatengine.KindAlreadyAdmin, chatengine.KindOf(err))
}

func TestRemoveMemberSelfRemoval(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	f.notifier.Reset()

	updated, err := f.engine.RemoveMember(ctx, "bob", "bob", group.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, []string{"alice"}, updated.Members)
	assert.Equal(t, []string{fanout.EventRemoveChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("bob"))))
	assert.Equal(t, []string{fanout.EventRemoveMember}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("alice"))))
}

func TestRemoveMemberNonAdminCannotRemoveOthers(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	_, err = f.engine.RemoveMember(ctx, "bob", "carol", group.ID)
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))

	_, err = f.engine.RemoveMember(ctx, "alice", "ghost", group.ID)
	assert.Equal(t, chatengine.KindNotAMember, chatengine.KindOf(err))
}

func TestRemoveMemberPromotesLowestIDOnAdminVacancy(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	f.notifier.Reset()

	// The only admin leaves; the lowest remaining id takes over.
	updated, err := f.engine.RemoveMember(ctx, "alice", "alice", group.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.ElementsMatch(t, []string{"bob", "carol"}, updated.Members)
	assert.Equal(t, []string{"bob"}, updated.Admins)

	assert.Equal(t, []string{fanout.EventRemoveChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("alice"))))
	assert.Equal(t, []string{fanout.EventAddAdmin, fanout.EventRemoveMember}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("bob"))))
	assert.Equal(t, []string{fanout.EventRemoveMember}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("carol"))))
}

func TestRemoveLastMemberDeletesChat(t *testing.T) {
	f := newEngineFixture(t, "alice")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{Name: "solo"})
	require.NoError(t, err)

	f.notifier.Reset()

	updated, err := f.engine.RemoveMember(ctx, "alice", "alice", group.ID)
	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.False(t, f.chats.Has(group.ID))
	assert.Equal(t, []string{fanout.EventRemoveChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("alice"))))
}

func TestRemoveMemberRejectedOnDirectChat(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	ctx := context.Background()

	chat, err := f.engine.CreateDirectChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.engine.RemoveMember(ctx, "alice", "bob", chat.ID)
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))
}

func TestUpdateGroup(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	_, err = f.engine.UpdateGroup(ctx, "ghost", group.ID, chatengine.UpdateGroupInput{Name: "renamed"})
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))

	f.notifier.Reset()

	// Any member may rename, not just admins.
	updated, err := f.engine.UpdateGroup(ctx, "bob", group.ID, chatengine.UpdateGroupInput{Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, []string{fanout.EventUpdateChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("alice"))))
	assert.Equal(t, []string{fanout.EventUpdateChat}, eventTypes(f.notifier.EventsFor(fanout.UserDestination("bob"))))

	f.notifier.Reset()

	// No change, no event.
	_, err = f.engine.UpdateGroup(ctx, "bob", group.ID, chatengine.UpdateGroupInput{})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.Events())
}

func TestDeleteChatAuthorization(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob")
	ctx := context.Background()

	group, err := f.engine.CreateGroup(ctx, "alice", chatengine.CreateGroupInput{
		Name:      "plans",
		MemberIDs: []string{"bob"},
	})
	require.NoError(t, err)

	err = f.engine.DeleteChat(ctx, "bob", group.ID)
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))

	require.NoError(t, f.engine.DeleteChat(ctx, "alice", group.ID))
	assert.False(t, f.chats.Has(group.ID))

	// Direct chats may be deleted by either member.
	direct, err := f.engine.CreateDirectChat(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteChat(ctx, "bob", direct.ID))
	assert.False(t, f.chats.Has(direct.ID))
}

func TestGetChatMemberOnly(t *testing.T) {
	f := newEngineFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	chat, err := f.engine.CreateDirectChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.engine.GetChat(ctx, "carol", chat.ID)
	assert.Equal(t, chatengine.KindForbidden, chatengine.KindOf(err))

	got, err := f.engine.GetChat(ctx, "bob", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)

	_, err = f.engine.GetChat(ctx, "alice", "missing")
	assert.Equal(t, chatengine.KindNotFound, chatengine.KindOf(err))
}
