package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/robbine75/chat/internal/bot"
	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/chat"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/presence"
	"github.com/robbine75/chat/internal/types"
)

// Handler processes background jobs. It shares the messenger and
// broadcaster with the websocket server so bot replies and presence
// snapshots reach live sessions directly.
type Handler struct {
	log         *log.Logger
	db          database.ChatRepository
	messenger   *chat.Messenger
	responder   bot.Responder
	presence    presence.Tracker
	bc          *broadcast.Broadcaster
	botUsername string
}

func NewHandler(logger *log.Logger, db database.ChatRepository, messenger *chat.Messenger,
	responder bot.Responder, tracker presence.Tracker, bc *broadcast.Broadcaster, botUsername string) *Handler {
	return &Handler{
		log:         logger,
		db:          db,
		messenger:   messenger,
		responder:   responder,
		presence:    tracker,
		bc:          bc,
		botUsername: botUsername,
	}
}

// Mux returns the task router for the worker server.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeChatbotResponse, h.HandleChatbotResponse)
	mux.HandleFunc(TypePresenceSweep, h.HandlePresenceSweep)
	return mux
}

// HandleChatbotResponse produces the bot's reply to a message and sends
// it through the regular write path.
func (h *Handler) HandleChatbotResponse(ctx context.Context, t *asynq.Task) error {
	var payload ChatbotResponsePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal chatbot payload: %v: %w", err, asynq.SkipRetry)
	}

	acct, err := h.db.GetAccountByUsername(h.botUsername)
	if err != nil {
		return fmt.Errorf("look up bot account: %w", err)
	}

	reply := h.responder.Respond(payload.Text)

	author := types.User{Id: acct.Id, Username: acct.Username}
	if _, err := h.messenger.SendMessage(ctx, payload.ThreadId, author, reply); err != nil {
		// The thread may have been deleted or the bot removed since the
		// job was enqueued; retrying cannot succeed.
		if errors.Is(err, chat.ErrThreadNotFound) || errors.Is(err, chat.ErrNotAMember) {
			h.log.Printf("dropping chatbot job for thread %d: %v", payload.ThreadId, err)
			return nil
		}
		return fmt.Errorf("send chatbot reply: %w", err)
	}

	return nil
}

// HandlePresenceSweep refreshes the bot's presence record and pushes the
// online snapshot to every presence session.
func (h *Handler) HandlePresenceSweep(ctx context.Context, t *asynq.Task) error {
	if err := h.presence.Touch(ctx, h.botUsername); err != nil {
		return fmt.Errorf("touch bot presence: %w", err)
	}

	online, err := h.presence.ListOnline(ctx)
	if err != nil {
		return fmt.Errorf("list online users: %w", err)
	}

	h.bc.Broadcast(broadcast.UsersGroup, online)
	return nil
}

// NewScheduler registers the periodic jobs. interval is rendered as an
// "@every" cron spec, matching the sweep cadence from configuration.
func NewScheduler(opt asynq.RedisClientOpt, interval string, logger *log.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Logger: asynqLogger{logger},
	})

	if _, err := scheduler.Register("@every "+interval, asynq.NewTask(TypePresenceSweep, nil)); err != nil {
		return nil, fmt.Errorf("register presence sweep: %w", err)
	}

	return scheduler, nil
}

// asynqLogger adapts the standard logger to asynq's logging interface.
type asynqLogger struct {
	l *log.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Print(append([]interface{}{"DEBUG:"}, args...)...) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Print(append([]interface{}{"INFO:"}, args...)...) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Print(append([]interface{}{"WARN:"}, args...)...) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Print(append([]interface{}{"ERROR:"}, args...)...) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal(args...) }
