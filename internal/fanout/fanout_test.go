package fanout

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu     sync.Mutex
	events map[string][]Event
	err    error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{events: map[string][]Event{}}
}

func (t *recordingTransport) Publish(ctx context.Context, destination string, event Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[destination] = append(t.events[destination], event)
	return t.err
}

func (t *recordingTransport) delivered(destination string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events[destination]...)
}

func testLog(t *testing.T) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("test", t.Name())
}

func TestDeliveryOrderPerDestination(t *testing.T) {
	transport := newRecordingTransport()
	f := New(testLog(t), transport)

	for i := 0; i < 20; i++ {
		f.NotifyChat("c1", Event{Type: EventMessageSend, ChatID: "c1", Payload: i})
	}
	f.Close()

	delivered := transport.delivered(ChatDestination("c1"))
	require.Len(t, delivered, 20)
	for i, event := range delivered {
		assert.Equal(t, i, event.Payload)
	}
}

func TestAllTransportsReceiveEvents(t *testing.T) {
	first := newRecordingTransport()
	second := newRecordingTransport()
	f := New(testLog(t), first, second)

	f.NotifyUser("u1", Event{Type: EventAddChat, ChatID: "c1"})
	f.Close()

	require.Len(t, first.delivered(UserDestination("u1")), 1)
	require.Len(t, second.delivered(UserDestination("u1")), 1)
}

func TestFailingTransportDoesNotStopOthers(t *testing.T) {
	failing := newRecordingTransport()
	failing.err = assert.AnError
	healthy := newRecordingTransport()
	f := New(testLog(t), failing, healthy)

	f.NotifyChat("c1", Event{Type: EventMessageSend, ChatID: "c1"})
	f.NotifyChat("c1", Event{Type: EventMessageEdit, ChatID: "c1"})
	f.Close()

	require.Len(t, healthy.delivered(ChatDestination("c1")), 2)
}

func TestNotifyAfterCloseIsNoop(t *testing.T) {
	transport := newRecordingTransport()
	f := New(testLog(t), transport)

	f.Close()
	f.NotifyUser("u1", Event{Type: EventAddChat})

	assert.Empty(t, transport.delivered(UserDestination("u1")))
}

func TestDestinationsAreIndependent(t *testing.T) {
	transport := newRecordingTransport()
	f := New(testLog(t), transport)

	f.NotifyUser("u1", Event{Type: EventAddChat, ChatID: "c1"})
	f.NotifyUser("u2", Event{Type: EventRemoveChat, ChatID: "c1"})
	f.NotifyChat("c1", Event{Type: EventMessageSend, ChatID: "c1"})
	f.Close()

	assert.Len(t, transport.delivered(UserDestination("u1")), 1)
	assert.Len(t, transport.delivered(UserDestination("u2")), 1)
	assert.Len(t, transport.delivered(ChatDestination("c1")), 1)
}
