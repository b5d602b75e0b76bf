package mocks

import (
	"sync"

	"github.com/fabricioGuac/chat-fusion/internal/fanout"
)

// NotifiedEvent is one captured fanout delivery.
type NotifiedEvent struct {
	Destination string
	Event       fanout.Event
}

// NotifierRecorder captures engine notifications in order for assertions.
type NotifierRecorder struct {
	mu     sync.Mutex
	events []NotifiedEvent
}

func NewNotifierRecorder() *NotifierRecorder {
	return &NotifierRecorder{}
}

func (r *NotifierRecorder) NotifyUser(userID string, event fanout.Event) {
	r.record(fanout.UserDestination(userID), event)
}

func (r *NotifierRecorder) NotifyChat(chatID string, event fanout.Event) {
	r.record(fanout.ChatDestination(chatID), event)
}

func (r *NotifierRecorder) record(destination string, event fanout.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, NotifiedEvent{Destination: destination, Event: event})
}

// Events returns a snapshot of everything recorded so far.
func (r *NotifierRecorder) Events() []NotifiedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NotifiedEvent(nil), r.events...)
}

// EventsFor filters the snapshot down to one destination.
func (r *NotifierRecorder) EventsFor(destination string) []NotifiedEvent {
	var out []NotifiedEvent
	for _, e := range r.Events() {
		if e.Destination == destination {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears the recording.
func (r *NotifierRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
