package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/config"
	"github.com/robbine75/chat/internal/presence"
	"github.com/robbine75/chat/internal/stats"
	"github.com/robbine75/chat/internal/types"
)

// Messenger is the write path used by sessions for inbound events.
type Messenger interface {
	SendMessage(ctx context.Context, threadId int, author types.User, text string) (types.Message, error)
	MarkRead(ctx context.Context, threadId, accountId int) error
}

// ChatServer owns the registry of live websocket sessions. Registration
// joins a session to its group; deregistration leaves every group.
type ChatServer struct {
	log            *log.Logger
	bc             *broadcast.Broadcaster
	presence       presence.Tracker
	messenger      Messenger
	stats          stats.StatsProvider
	wsConfig       config.WSConfig
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, bc *broadcast.Broadcaster, tracker presence.Tracker,
	messenger Messenger, sp stats.StatsProvider, wsConfig config.WSConfig) *ChatServer {
	return &ChatServer{
		log:            logger,
		bc:             bc,
		presence:       tracker,
		messenger:      messenger,
		stats:          sp,
		wsConfig:       wsConfig,
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Printf("registering session %s for %q", client.id, client.user.Username)
			cs.addClient(client)
			cs.bc.Join(client.group, client)
			cs.stats.Incr(stats.ActiveSessions)

			if client.kind == KindPresence {
				cs.sendOnlineSnapshot(client)
			}
		case client := <-cs.deRegisterChan:
			cs.log.Printf("deregistering session %s for %q", client.id, client.user.Username)
			cs.bc.LeaveAll(client)
			cs.removeClient(client)
			cs.stats.Decr(stats.ActiveSessions)
		case <-cs.stop:
			close(cs.done)
			return
		}
	}
}

// sendOnlineSnapshot queues the current online user list as the
// session's first frame.
func (cs *ChatServer) sendOnlineSnapshot(c *Client) {
	online, err := cs.presence.ListOnline(context.Background())
	if err != nil {
		cs.log.Printf("list online users: %v", err)
		return
	}

	data, err := json.Marshal(online)
	if err != nil {
		cs.log.Printf("marshal online snapshot: %v", err)
		return
	}

	c.Queue(data)
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

func (cs *ChatServer) Shutdown() {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	<-cs.done
}
