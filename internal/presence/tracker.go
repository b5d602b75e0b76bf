package presence

import "sync"

// Tracker records which users currently hold a live connection to a chat.
// The connected set is a hint for read-receipt optimization, not durable
// state: a restart clears it and clients re-announce themselves.
type Tracker struct {
	mu        sync.RWMutex
	connected map[string]map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{connected: make(map[string]map[string]int)}
}

// Connect registers a live connection of the user to the chat. A user may
// hold several connections at once; the chat counts them so that closing one
// tab does not mark the user offline.
func (t *Tracker) Connect(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.connected[chatID]
	if !ok {
		users = make(map[string]int)
		t.connected[chatID] = users
	}
	users[userID]++
}

// Disconnect removes one live connection of the user. Idempotent: extra
// disconnects are ignored.
func (t *Tracker) Disconnect(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.connected[chatID]
	if !ok {
		return
	}
	if users[userID] <= 1 {
		delete(users, userID)
	} else {
		users[userID]--
	}
	if len(users) == 0 {
		delete(t.connected, chatID)
	}
}

// Connected reports whether the user has at least one live connection to the
// chat.
func (t *Tracker) Connected(chatID, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.connected[chatID][userID]
	return ok
}

// ConnectedUsers returns the set of users live on the chat.
func (t *Tracker) ConnectedUsers(chatID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	users := make([]string, 0, len(t.connected[chatID]))
	for userID := range t.connected[chatID] {
		users = append(users, userID)
	}
	return users
}

// DropChat forgets every connection of a chat, used when the chat itself is
// deleted.
func (t *Tracker) DropChat(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.connected, chatID)
}
