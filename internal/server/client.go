package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/chat"
	"github.com/robbine75/chat/internal/types"
	"github.com/teris-io/shortid"
)

type SessionKind int

const (
	// KindPresence joins the users group and receives online snapshots.
	KindPresence SessionKind = iota
	// KindThread joins a single thread group and accepts text and read
	// events.
	KindThread
)

// Client is one websocket session. It implements broadcast.Conn, so
// group events reach it through Queue.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	kind       SessionKind
	threadId   int
	group      string
	send       chan []byte
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(user types.User, kind SessionKind, threadId int, conn *websocket.Conn,
	cs *ChatServer, l *log.Logger) *Client {
	group := broadcast.UsersGroup
	if kind == KindThread {
		group = broadcast.ThreadGroup(threadId)
	}

	return &Client{
		id:         shortid.MustGenerate(),
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		kind:       kind,
		threadId:   threadId,
		group:      group,
		send:       make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
}

// Queue hands a serialized frame to the write pump without blocking.
// False means the session is unreachable and should be dropped.
func (c *Client) Queue(data []byte) bool {
	select {
	case c.send <- data:
	default:
		c.log.Printf("send buffer full on session %s", c.id)
		return false
	}

	return true
}

func (c *Client) Username() string {
	return c.user.Username
}

func (c *Client) Write() {
	pingInterval := (c.chatServer.wsConfig.PongWait * 9) / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting on session %s", c.id)
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}

			if !c.sendMessage(websocket.TextMessage, data) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting on session %s", c.id)
	}()

	pongWait := c.chatServer.wsConfig.PongWait
	c.conn.SetReadLimit(c.chatServer.wsConfig.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		// Presence sessions are receive-only.
		if c.kind != KindThread {
			continue
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Printf("error parsing event on session %s: %v", c.id, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent dispatches one inbound thread event. Unknown shapes are
// ignored without error.
func (c *Client) handleEvent(event ClientEvent) {
	switch {
	case event.Text != nil:
		_, err := c.chatServer.messenger.SendMessage(context.Background(), c.threadId, c.user, *event.Text)
		if err != nil {
			if errors.Is(err, chat.ErrNotAMember) {
				c.log.Printf("rejected message from non-member %q on thread %d", c.user.Username, c.threadId)
				return
			}
			c.log.Printf("send message on thread %d: %v", c.threadId, err)
		}
	case event.Read != nil && *event.Read:
		if err := c.chatServer.messenger.MarkRead(context.Background(), c.threadId, c.user.Id); err != nil {
			c.log.Printf("mark thread %d read: %v", c.threadId, err)
		}
	}
}

func (c *Client) sendMessage(msgType int, data []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(c.chatServer.wsConfig.WriteWait))

	if err := c.conn.WriteMessage(msgType, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.chatServer.deRegisterChan <- c
	c.stopClient()
}
