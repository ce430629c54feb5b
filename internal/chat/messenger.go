// Package chat implements the thread/message write path: durable writes
// first, best-effort broadcast second.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/lang"
	"github.com/robbine75/chat/internal/stats"
	"github.com/robbine75/chat/internal/types"
)

var (
	ErrNotAMember      = errors.New("user is not a member of the thread")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Enqueuer hands jobs to the background queue. Fire-and-forget,
// at-least-once.
type Enqueuer interface {
	EnqueueChatbotResponse(ctx context.Context, threadId int, text string) error
}

type Messenger struct {
	log         *log.Logger
	db          database.ChatRepository
	bc          *broadcast.Broadcaster
	classifier  lang.Classifier
	queue       Enqueuer
	botUsername string
	stats       stats.StatsProvider
}

func NewMessenger(logger *log.Logger, db database.ChatRepository, bc *broadcast.Broadcaster,
	classifier lang.Classifier, queue Enqueuer, botUsername string, sp stats.StatsProvider) *Messenger {
	return &Messenger{
		log:         logger,
		db:          db,
		bc:          bc,
		classifier:  classifier,
		queue:       queue,
		botUsername: botUsername,
		stats:       sp,
	}
}

// SendMessage validates membership, classifies the text, persists the
// message together with its unread markers, enqueues a bot response when
// the bot is a member, and broadcasts the create event to the thread
// group.
func (m *Messenger) SendMessage(ctx context.Context, threadId int, author types.User, text string) (types.Message, error) {
	member, err := m.db.IsThreadMember(threadId, author.Id)
	if err != nil {
		return types.Message{}, err
	}
	if !member {
		return types.Message{}, ErrNotAMember
	}

	members, err := m.db.ThreadMembers(threadId)
	if err != nil {
		return types.Message{}, err
	}

	group := broadcast.ThreadGroup(threadId)
	active := make(map[string]struct{})
	for _, username := range m.bc.ActiveUsers(group) {
		active[username] = struct{}{}
	}

	// No marker for the author, the bot, or anyone with a live session on
	// the thread.
	skip := []int{author.Id}
	var notifyBot bool
	for _, mem := range members {
		switch {
		case mem.Id == author.Id:
		case mem.Username == m.botUsername:
			skip = append(skip, mem.Id)
			notifyBot = true
		default:
			if _, ok := active[mem.Username]; ok {
				skip = append(skip, mem.Id)
			}
		}
	}

	dbMsg, err := m.db.CreateMessage(database.CreateMessageParams{
		ThreadId:   threadId,
		AcctId:     author.Id,
		Text:       text,
		Lang:       m.classifier.Classify(text),
		SkipUnread: skip,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrThreadNotFound
		}
		return types.Message{}, err
	}

	if notifyBot && author.Username != m.botUsername {
		if err := m.queue.EnqueueChatbotResponse(ctx, threadId, text); err != nil {
			// The durable write stands; the bot just stays quiet.
			m.log.Printf("enqueue chatbot response for thread %d: %v", threadId, err)
		}
	}

	msg := messageFromDB(dbMsg)
	m.bc.Broadcast(group, CreateEvent(msg))
	m.stats.Incr(stats.MessagesDelivered)

	return msg, nil
}

// DeleteMessage removes the message and broadcasts the delete action,
// carrying only the deleted id.
func (m *Messenger) DeleteMessage(ctx context.Context, messageId int) (types.Message, error) {
	dbMsg, err := m.db.DeleteMessage(messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrMessageNotFound
		}
		return types.Message{}, err
	}

	m.bc.Broadcast(broadcast.ThreadGroup(dbMsg.ThreadId), DeleteEvent(dbMsg.Id))

	return messageFromDB(dbMsg), nil
}

// MarkRead deletes the user's unread marker for the thread. No-op when
// no marker exists; never broadcasts.
func (m *Messenger) MarkRead(ctx context.Context, threadId, accountId int) error {
	return m.db.DeleteUnreadThread(threadId, accountId)
}

func messageFromDB(msg database.Message) types.Message {
	return types.Message{
		Id:       msg.Id,
		ThreadId: msg.ThreadId,
		UserId:   msg.AcctId,
		Username: msg.Username,
		Text:     msg.Text,
		Lang:     msg.Lang,
		Date:     msg.Date,
	}
}
