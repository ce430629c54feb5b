// Package tasks defines the background jobs of the chat service and the
// asynq client used to enqueue them. Jobs run in-process with the HTTP
// server so the handlers share the live broadcaster.
package tasks

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robbine75/chat/internal/stats"
)

const (
	TypeChatbotResponse = "chatbot:response"
	TypePresenceSweep   = "presence:sweep"
)

// chatbotDedupWindow buckets duplicate bot jobs: identical text sent to
// the same thread within one window enqueues a single task.
const chatbotDedupWindow = 30 * time.Second

type ChatbotResponsePayload struct {
	ThreadId int    `json:"thread_id"`
	Text     string `json:"text"`
}

// Client enqueues background jobs onto the redis-backed queue.
type Client struct {
	log    *log.Logger
	client *asynq.Client
	stats  stats.StatsProvider
}

func NewClient(logger *log.Logger, opt asynq.RedisClientOpt, sp stats.StatsProvider) *Client {
	return &Client{
		log:    logger,
		client: asynq.NewClient(opt),
		stats:  sp,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueChatbotResponse schedules a bot reply for the thread. A task id
// derived from the thread, the text and the current time window
// deduplicates rapid identical sends.
func (c *Client) EnqueueChatbotResponse(ctx context.Context, threadId int, text string) error {
	payload, err := json.Marshal(ChatbotResponsePayload{ThreadId: threadId, Text: text})
	if err != nil {
		return fmt.Errorf("marshal chatbot payload: %w", err)
	}

	task := asynq.NewTask(TypeChatbotResponse, payload)
	_, err = c.client.EnqueueContext(ctx, task, asynq.TaskID(chatbotTaskID(threadId, text, time.Now())))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			c.log.Printf("duplicate chatbot job for thread %d dropped", threadId)
			return nil
		}
		return fmt.Errorf("enqueue chatbot response: %w", err)
	}

	c.stats.Incr(stats.TasksEnqueued)
	return nil
}

func chatbotTaskID(threadId int, text string, now time.Time) string {
	sum := sha1.Sum([]byte(text))
	bucket := now.Unix() / int64(chatbotDedupWindow.Seconds())
	return fmt.Sprintf("chatbot:%d:%s:%d", threadId, hex.EncodeToString(sum[:]), bucket)
}
