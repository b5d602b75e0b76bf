package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectDisconnect(t *testing.T) {
	tracker := NewTracker()

	assert.False(t, tracker.Connected("c1", "u1"))

	tracker.Connect("c1", "u1")
	assert.True(t, tracker.Connected("c1", "u1"))
	assert.False(t, tracker.Connected("c2", "u1"))

	tracker.Disconnect("c1", "u1")
	assert.False(t, tracker.Connected("c1", "u1"))
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	tracker := NewTracker()

	// Two tabs; closing one must not mark the user offline.
	tracker.Connect("c1", "u1")
	tracker.Connect("c1", "u1")

	tracker.Disconnect("c1", "u1")
	assert.True(t, tracker.Connected("c1", "u1"))

	tracker.Disconnect("c1", "u1")
	assert.False(t, tracker.Connected("c1", "u1"))
}

func TestDisconnectWithoutConnect(t *testing.T) {
	tracker := NewTracker()

	tracker.Disconnect("c1", "u1")
	assert.False(t, tracker.Connected("c1", "u1"))
}

func TestConnectedUsers(t *testing.T) {
	tracker := NewTracker()

	tracker.Connect("c1", "u1")
	tracker.Connect("c1", "u2")
	tracker.Connect("c2", "u3")

	assert.ElementsMatch(t, []string{"u1", "u2"}, tracker.ConnectedUsers("c1"))
	assert.ElementsMatch(t, []string{"u3"}, tracker.ConnectedUsers("c2"))
	assert.Empty(t, tracker.ConnectedUsers("c3"))
}

func TestDropChat(t *testing.T) {
	tracker := NewTracker()

	tracker.Connect("c1", "u1")
	tracker.Connect("c1", "u2")

	tracker.DropChat("c1")
	assert.False(t, tracker.Connected("c1", "u1"))
	assert.Empty(t, tracker.ConnectedUsers("c1"))
}

func TestConcurrentAccess(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Connect("c1", "u1")
				tracker.Connected("c1", "u1")
				tracker.Disconnect("c1", "u1")
			}
		}()
	}
	wg.Wait()

	assert.False(t, tracker.Connected("c1", "u1"))
}
