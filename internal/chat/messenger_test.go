package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/stats"
	"github.com/robbine75/chat/internal/testutil"
	"github.com/robbine75/chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	username string
	frames   [][]byte
}

func (c *fakeConn) Queue(data []byte) bool {
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) Username() string { return c.username }

type fakeClassifier struct{ code string }

func (c fakeClassifier) Classify(string) string { return c.code }

type fakeQueue struct {
	threadIds []int
	texts     []string
}

func (q *fakeQueue) EnqueueChatbotResponse(_ context.Context, threadId int, text string) error {
	q.threadIds = append(q.threadIds, threadId)
	q.texts = append(q.texts, text)
	return nil
}

var (
	alice = types.User{Id: 1, Username: "alice"}
	bob   = database.Account{Id: 2, Username: "bob"}
	bot   = database.Account{Id: 3, Username: "chatbot"}
)

func newTestMessenger(t *testing.T, db *database.MockChatRepository, queue *fakeQueue) (*Messenger, *broadcast.Broadcaster) {
	ms := &stats.MockStatsUpdater{}
	ms.On("Incr", mock.Anything).Maybe()
	ms.On("Decr", mock.Anything).Maybe()

	bc := broadcast.NewBroadcaster(testutil.TestLogger(t), ms)
	m := NewMessenger(testutil.TestLogger(t), db, bc, fakeClassifier{code: "en"}, queue, "chatbot", ms)
	return m, bc
}

func Test_SendMessage(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("IsThreadMember", 5, alice.Id).Return(true, nil)
	db.On("ThreadMembers", 5).Return([]database.Account{
		{Id: alice.Id, Username: alice.Username}, bob,
	}, nil)
	db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		return p.ThreadId == 5 && p.AcctId == alice.Id && p.Text == "hello" &&
			p.Lang == "en" && assert.ObjectsAreEqual([]int{alice.Id}, p.SkipUnread)
	})).Return(database.Message{
		Id: 10, ThreadId: 5, AcctId: alice.Id, Username: alice.Username, Text: "hello", Lang: "en",
	}, nil)

	queue := &fakeQueue{}
	m, bc := newTestMessenger(t, db, queue)

	aliceConn := &fakeConn{username: "alice"}
	bobConn := &fakeConn{username: "bob"}
	otherConn := &fakeConn{username: "carol"}
	bc.Join("thread-5", aliceConn)
	bc.Join("thread-5", bobConn)
	bc.Join("thread-6", otherConn)

	msg, err := m.SendMessage(context.Background(), 5, alice, "hello")
	require.NoError(t, err)
	assert.Equal(t, 10, msg.Id)

	require.Len(t, aliceConn.frames, 1, "expected the sender's session to receive the event")
	require.Len(t, bobConn.frames, 1, "expected the other member's session to receive the event")
	assert.Empty(t, otherConn.frames, "expected no delivery outside the thread group")

	var event Event
	require.NoError(t, json.Unmarshal(bobConn.frames[0], &event))
	assert.Equal(t, ActionCreate, event.Payload.Action)
	assert.Equal(t, 10, event.Payload.Pk)
	require.NotNil(t, event.Payload.Data)
	assert.Equal(t, "hello", event.Payload.Data.Text)

	assert.Empty(t, queue.threadIds, "expected no bot job without the bot as a member")
	db.AssertExpectations(t)
}

func Test_SendMessage_notAMember(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("IsThreadMember", 5, alice.Id).Return(false, nil)

	m, bc := newTestMessenger(t, db, &fakeQueue{})

	watcher := &fakeConn{username: "bob"}
	bc.Join("thread-5", watcher)

	_, err := m.SendMessage(context.Background(), 5, alice, "hello")
	assert.ErrorIs(t, err, ErrNotAMember)
	assert.Empty(t, watcher.frames, "expected no broadcast for a rejected message")
	db.AssertNotCalled(t, "CreateMessage", mock.Anything)
}

func Test_SendMessage_skipsActiveViewers(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("IsThreadMember", 5, alice.Id).Return(true, nil)
	db.On("ThreadMembers", 5).Return([]database.Account{
		{Id: alice.Id, Username: alice.Username}, bob,
	}, nil)
	db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		return assert.ObjectsAreEqual([]int{alice.Id, bob.Id}, p.SkipUnread)
	})).Return(database.Message{Id: 11, ThreadId: 5, AcctId: alice.Id}, nil)

	m, bc := newTestMessenger(t, db, &fakeQueue{})

	// bob is actively viewing the thread, so he gets the broadcast but no
	// unread marker.
	bc.Join("thread-5", &fakeConn{username: "bob"})

	_, err := m.SendMessage(context.Background(), 5, alice, "hello")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func Test_SendMessage_botThread(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("IsThreadMember", 7, alice.Id).Return(true, nil)
	db.On("ThreadMembers", 7).Return([]database.Account{
		{Id: alice.Id, Username: alice.Username}, bot,
	}, nil)
	db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
		// The bot never receives an unread marker.
		return assert.ObjectsAreEqual([]int{alice.Id, bot.Id}, p.SkipUnread)
	})).Return(database.Message{Id: 12, ThreadId: 7, AcctId: alice.Id, Text: "hi bot"}, nil)

	queue := &fakeQueue{}
	m, _ := newTestMessenger(t, db, queue)

	_, err := m.SendMessage(context.Background(), 7, alice, "hi bot")
	require.NoError(t, err)

	assert.Equal(t, []int{7}, queue.threadIds, "expected a bot job for the thread")
	assert.Equal(t, []string{"hi bot"}, queue.texts, "expected the job to carry the original text")
	db.AssertExpectations(t)
}

func Test_SendMessage_botAuthorDoesNotReEnqueue(t *testing.T) {
	botUser := types.User{Id: bot.Id, Username: bot.Username}

	db := &database.MockChatRepository{}
	db.On("IsThreadMember", 7, bot.Id).Return(true, nil)
	db.On("ThreadMembers", 7).Return([]database.Account{
		{Id: alice.Id, Username: alice.Username}, bot,
	}, nil)
	db.On("CreateMessage", mock.Anything).Return(
		database.Message{Id: 13, ThreadId: 7, AcctId: bot.Id, Text: "42"}, nil)

	queue := &fakeQueue{}
	m, _ := newTestMessenger(t, db, queue)

	_, err := m.SendMessage(context.Background(), 7, botUser, "42")
	require.NoError(t, err)
	assert.Empty(t, queue.threadIds, "expected no bot job for a bot-authored message")
}

func Test_SendMessage_threadNotFound(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("IsThreadMember", 99, alice.Id).Return(true, nil)
	db.On("ThreadMembers", 99).Return([]database.Account{{Id: alice.Id, Username: alice.Username}}, nil)
	db.On("CreateMessage", mock.Anything).Return(database.Message{}, sql.ErrNoRows)

	m, _ := newTestMessenger(t, db, &fakeQueue{})

	_, err := m.SendMessage(context.Background(), 99, alice, "hello")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func Test_DeleteMessage(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("DeleteMessage", 10).Return(database.Message{Id: 10, ThreadId: 5}, nil)

	m, bc := newTestMessenger(t, db, &fakeQueue{})

	watcher := &fakeConn{username: "bob"}
	bc.Join("thread-5", watcher)

	_, err := m.DeleteMessage(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, watcher.frames, 1)
	assert.JSONEq(t, `{"payload":{"action":"delete","data":null,"pk":10}}`, string(watcher.frames[0]))
}

func Test_DeleteMessage_notFound(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("DeleteMessage", 404).Return(database.Message{}, sql.ErrNoRows)

	m, _ := newTestMessenger(t, db, &fakeQueue{})

	_, err := m.DeleteMessage(context.Background(), 404)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func Test_MarkRead(t *testing.T) {
	db := &database.MockChatRepository{}
	db.On("DeleteUnreadThread", 5, alice.Id).Return(nil)

	m, bc := newTestMessenger(t, db, &fakeQueue{})

	watcher := &fakeConn{username: "bob"}
	bc.Join("thread-5", watcher)

	require.NoError(t, m.MarkRead(context.Background(), 5, alice.Id))
	assert.Empty(t, watcher.frames, "expected no broadcast for a read event")
	db.AssertExpectations(t)
}
