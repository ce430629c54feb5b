package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/robbine75/chat/internal/testutil"
	"github.com/robbine75/chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Run(t *testing.T) {
	user := types.User{Id: 1, Username: "testuser"}

	t.Run("register joins group", func(t *testing.T) {
		cs := newTestChatServer(t, &fakeMessenger{})
		go cs.Run()
		defer cs.Shutdown()

		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))
		cs.RegisterChan <- c

		assert.Eventually(t, func() bool {
			return len(cs.bc.ActiveUsers("thread-5")) == 1
		}, time.Second, 10*time.Millisecond, "expected registration to join the thread group")

		cs.deRegisterChan <- c

		assert.Eventually(t, func() bool {
			cs.clientsLock.Lock()
			_, ok := cs.clients[c]
			cs.clientsLock.Unlock()
			return !ok && len(cs.bc.ActiveUsers("thread-5")) == 0
		}, time.Second, 10*time.Millisecond, "expected deregistration to remove the client and leave the group")
	})

	t.Run("presence session receives online snapshot", func(t *testing.T) {
		cs := newTestChatServer(t, &fakeMessenger{})
		require.NoError(t, cs.presence.Touch(context.Background(), "alice"))

		go cs.Run()
		defer cs.Shutdown()

		c := NewClient(user, KindPresence, 0, nil, cs, testutil.TestLogger(t))
		cs.RegisterChan <- c

		select {
		case data := <-c.send:
			var online []string
			require.NoError(t, json.Unmarshal(data, &online))
			assert.Equal(t, []string{"alice"}, online)
		case <-time.After(time.Second):
			t.Error("expected the online snapshot as the first frame, but none was queued")
		}

		cs.deRegisterChan <- c
	})

	t.Run("thread session gets no snapshot", func(t *testing.T) {
		cs := newTestChatServer(t, &fakeMessenger{})
		go cs.Run()
		defer cs.Shutdown()

		c := NewClient(user, KindThread, 5, nil, cs, testutil.TestLogger(t))
		cs.RegisterChan <- c

		assert.Eventually(t, func() bool {
			return len(cs.bc.ActiveUsers(c.group)) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Empty(t, c.send, "expected no initial frame on a thread session")

		cs.deRegisterChan <- c
	})
}

func Test_Shutdown(t *testing.T) {
	cs := newTestChatServer(t, &fakeMessenger{})
	go cs.Run()

	c := NewClient(types.User{Id: 1, Username: "testuser"}, KindThread, 5, nil, cs, testutil.TestLogger(t))
	cs.RegisterChan <- c

	assert.Eventually(t, func() bool {
		return len(cs.bc.ActiveUsers(c.group)) == 1
	}, time.Second, 10*time.Millisecond)

	cs.Shutdown()

	select {
	case <-c.stop:
	default:
		t.Error("expected shutdown to stop registered sessions")
	}
}
