package fanout

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fabricioGuac/chat-fusion/internal/observability"
)

// Transport publishes an event to a named destination. Implementations must
// tolerate disconnected subscribers; a publish error only means that one
// transport missed one event.
type Transport interface {
	Publish(ctx context.Context, destination string, event Event) error
}

const queueCapacity = 256

// Fanout delivers events to every configured transport, one serial queue per
// destination so that a subscriber observes events for a given chat in the
// order the mutating operations completed. Delivery is fire-and-forget:
// enqueueing never blocks and transport failures never reach the caller.
type Fanout struct {
	transports []Transport
	log        *logrus.Entry

	mu     sync.Mutex
	queues map[string]chan Event
	closed bool
	wg     sync.WaitGroup
}

// New builds a Fanout over the given transports.
func New(log *logrus.Entry, transports ...Transport) *Fanout {
	return &Fanout{
		transports: transports,
		log:        log,
		queues:     make(map[string]chan Event),
	}
}

// NotifyUser enqueues an event on the user's notification destination.
func (f *Fanout) NotifyUser(userID string, event Event) {
	f.enqueue(UserDestination(userID), event)
}

// NotifyChat enqueues an event on the chat's shared destination.
func (f *Fanout) NotifyChat(chatID string, event Event) {
	f.enqueue(ChatDestination(chatID), event)
}

func (f *Fanout) enqueue(destination string, event Event) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	queue, ok := f.queues[destination]
	if !ok {
		queue = make(chan Event, queueCapacity)
		f.queues[destination] = queue
		f.wg.Add(1)
		go f.dispatch(destination, queue)
	}
	f.mu.Unlock()

	select {
	case queue <- event:
		observability.IncFanoutEvent(event.Type)
	default:
		// A stalled destination must not block mutations behind it.
		f.log.WithFields(logrus.Fields{"destination": destination, "type": event.Type}).
			Warn("fanout queue full, dropping event")
		observability.IncFanoutDropped()
	}
}

func (f *Fanout) dispatch(destination string, queue chan Event) {
	defer f.wg.Done()
	for event := range queue {
		for _, transport := range f.transports {
			if err := transport.Publish(context.Background(), destination, event); err != nil {
				f.log.WithError(err).WithFields(logrus.Fields{"destination": destination, "type": event.Type}).
					Warn("fanout publish failed")
			}
		}
	}
}

// Close drains every queue and waits for in-flight deliveries.
func (f *Fanout) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for _, queue := range f.queues {
		close(queue)
	}
	f.mu.Unlock()
	f.wg.Wait()
}
