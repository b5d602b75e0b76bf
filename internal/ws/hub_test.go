package ws

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testHub(t *testing.T) *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(logger.WithField("test", t.Name()))
}

func TestHubAddAndRemoveChatClient(t *testing.T) {
	hub := testHub(t)

	hub.AddChatClient("c1", nil, ConnInfo{UserID: "u1"})
	if len(hub.chatRooms) != 1 {
		t.Fatalf("expected chat room to be created")
	}

	hub.RemoveChatClient("c1", nil)
	if len(hub.chatRooms) != 0 {
		t.Fatalf("expected chat room to be removed")
	}
}

func TestHubAddAndRemoveUserClient(t *testing.T) {
	hub := testHub(t)

	hub.AddUserClient("u2", nil, ConnInfo{UserID: "u2"})
	if len(hub.userConns) != 1 {
		t.Fatalf("expected user channel to be created")
	}

	hub.RemoveUserClient("u2", nil)
	if len(hub.userConns) != 0 {
		t.Fatalf("expected user channel to be removed")
	}
}
