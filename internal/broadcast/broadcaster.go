// Package broadcast implements the group fan-out layer: named groups
// with transient membership of live connections.
package broadcast

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"

	"github.com/robbine75/chat/internal/stats"
)

// UsersGroup is the single global group carrying online-user snapshots.
const UsersGroup = "users"

// ThreadGroup returns the group name for a thread's live subscribers.
func ThreadGroup(threadId int) string {
	return "thread-" + strconv.Itoa(threadId)
}

// Conn is one live connection addressable by the broadcaster. Queue must
// not block; it reports false when the connection cannot accept the
// frame, in which case the member is silently dropped from the group.
type Conn interface {
	Queue(data []byte) bool
	Username() string
}

type Broadcaster struct {
	mu     sync.RWMutex
	groups map[string]map[Conn]struct{}
	log    *log.Logger
	stats  stats.StatsProvider
}

func NewBroadcaster(logger *log.Logger, sp stats.StatsProvider) *Broadcaster {
	return &Broadcaster{
		groups: make(map[string]map[Conn]struct{}),
		log:    logger,
		stats:  sp,
	}
}

func (b *Broadcaster) Join(group string, c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		members = make(map[Conn]struct{})
		b.groups[group] = members
		b.stats.Incr(stats.ActiveGroups)
	}
	members[c] = struct{}{}
}

func (b *Broadcaster) Leave(group string, c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(group, c)
}

// LeaveAll removes the connection from every group it joined. Called on
// session close so the connection is excluded from future fan-outs.
func (b *Broadcaster) LeaveAll(c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for group := range b.groups {
		b.removeLocked(group, c)
	}
}

func (b *Broadcaster) removeLocked(group string, c Conn) {
	members, ok := b.groups[group]
	if !ok {
		return
	}

	if _, ok := members[c]; !ok {
		return
	}

	delete(members, c)
	if len(members) == 0 {
		delete(b.groups, group)
		b.stats.Decr(stats.ActiveGroups)
	}
}

// Broadcast delivers event to every connection currently joined to the
// group. Members that cannot accept the frame are dropped without
// failing delivery to the rest.
func (b *Broadcaster) Broadcast(group string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Printf("broadcast to %q: marshal: %v", group, err)
		return
	}

	b.mu.RLock()
	members := make([]Conn, 0, len(b.groups[group]))
	for c := range b.groups[group] {
		members = append(members, c)
	}
	b.mu.RUnlock()

	var dropped []Conn
	for _, c := range members {
		if !c.Queue(data) {
			dropped = append(dropped, c)
		}
	}

	for _, c := range dropped {
		b.log.Printf("dropping unreachable member %q from group %q", c.Username(), group)
		b.Leave(group, c)
	}
}

// ActiveUsers returns the distinct usernames with a live connection in
// the group.
func (b *Broadcaster) ActiveUsers(group string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{}, len(b.groups[group]))
	users := make([]string, 0, len(b.groups[group]))
	for c := range b.groups[group] {
		if _, ok := seen[c.Username()]; ok {
			continue
		}
		seen[c.Username()] = struct{}{}
		users = append(users, c.Username())
	}

	return users
}
