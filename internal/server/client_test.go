package server

import (
	"context"
	"testing"
	"time"

	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/chat"
	"github.com/robbine75/chat/internal/config"
	"github.com/robbine75/chat/internal/presence"
	"github.com/robbine75/chat/internal/stats"
	"github.com/robbine75/chat/internal/testutil"
	"github.com/robbine75/chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type fakeMessenger struct {
	sent      []string
	sendErr   error
	readCalls []int
}

func (m *fakeMessenger) SendMessage(_ context.Context, threadId int, author types.User, text string) (types.Message, error) {
	if m.sendErr != nil {
		return types.Message{}, m.sendErr
	}
	m.sent = append(m.sent, text)
	return types.Message{Id: 1, ThreadId: threadId, UserId: author.Id, Text: text}, nil
}

func (m *fakeMessenger) MarkRead(_ context.Context, threadId, _ int) error {
	m.readCalls = append(m.readCalls, threadId)
	return nil
}

func testWSConfig() config.WSConfig {
	return config.WSConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 1024,
	}
}

func newTestChatServer(t *testing.T, messenger Messenger) *ChatServer {
	t.Helper()

	ms := &stats.MockStatsUpdater{}
	ms.On("Incr", mock.Anything).Maybe()
	ms.On("Decr", mock.Anything).Maybe()

	logger := testutil.TestLogger(t)
	bc := broadcast.NewBroadcaster(logger, ms)
	tracker := presence.NewMemoryTracker(2 * time.Minute)

	return NewChatServer(logger, bc, tracker, messenger, ms, testWSConfig())
}

func Test_NewClient(t *testing.T) {
	cs := newTestChatServer(t, &fakeMessenger{})
	user := types.User{Id: 1, Username: "testuser"}

	t.Run("presence session", func(t *testing.T) {
		c := NewClient(user, KindPresence, 0, nil, cs, testutil.TestLogger(t))
		assert.Equal(t, broadcast.UsersGroup, c.group)
		assert.NotEmpty(t, c.id)
	})

	t.Run("thread session", func(t *testing.T) {
		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))
		assert.Equal(t, "thread-5", c.group)
	})
}

func Test_Queue(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan []byte, 1),
			log:  testutil.TestLogger(t),
		}

		assert.True(t, c.Queue([]byte("frame")), "expected Queue to return true when channel is not full")

		select {
		case data := <-c.send:
			assert.Equal(t, []byte("frame"), data)
		default:
			t.Error("expected a frame to be queued, but none was")
		}
	})

	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan []byte, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- []byte("fill")
		assert.False(t, c.Queue([]byte("frame")), "expected Queue to return false when channel is full")
	})
}

func Test_handleEvent(t *testing.T) {
	user := types.User{Id: 1, Username: "testuser"}

	t.Run("text event", func(t *testing.T) {
		messenger := &fakeMessenger{}
		cs := newTestChatServer(t, messenger)
		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))

		text := "hello"
		c.handleEvent(ClientEvent{Text: &text})

		assert.Equal(t, []string{"hello"}, messenger.sent)
	})

	t.Run("non-member text is dropped silently", func(t *testing.T) {
		messenger := &fakeMessenger{sendErr: chat.ErrNotAMember}
		cs := newTestChatServer(t, messenger)
		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))

		text := "hello"
		c.handleEvent(ClientEvent{Text: &text})

		assert.Empty(t, messenger.sent)
		assert.Empty(t, c.send, "expected no error frame for a rejected message")
	})

	t.Run("read event", func(t *testing.T) {
		messenger := &fakeMessenger{}
		cs := newTestChatServer(t, messenger)
		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))

		read := true
		c.handleEvent(ClientEvent{Read: &read})

		assert.Equal(t, []int{5}, messenger.readCalls)
	})

	t.Run("read false is ignored", func(t *testing.T) {
		messenger := &fakeMessenger{}
		cs := newTestChatServer(t, messenger)
		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))

		read := false
		c.handleEvent(ClientEvent{Read: &read})

		assert.Empty(t, messenger.readCalls)
	})

	t.Run("unknown shape is ignored", func(t *testing.T) {
		messenger := &fakeMessenger{}
		cs := newTestChatServer(t, messenger)
		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))

		c.handleEvent(ClientEvent{})

		assert.Empty(t, messenger.sent)
		assert.Empty(t, messenger.readCalls)
	})
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()
	c.stopClient() // safe to call twice

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}
