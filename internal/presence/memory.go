package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryTracker is an in-process Tracker for tests and single-binary
// development runs. The clock is injectable so TTL expiry can be
// simulated without sleeping.
type MemoryTracker struct {
	mu   sync.RWMutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	return &MemoryTracker{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// SetClock replaces the tracker's time source.
func (t *MemoryTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *MemoryTracker) Touch(_ context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[username] = t.now()
	return nil
}

func (t *MemoryTracker) IsOnline(_ context.Context, username string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	last, ok := t.seen[username]
	return ok && t.now().Sub(last) < t.ttl, nil
}

func (t *MemoryTracker) ListOnline(_ context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]string, 0, len(t.seen))
	for username, last := range t.seen {
		if t.now().Sub(last) < t.ttl {
			users = append(users, username)
		}
	}

	sort.Strings(users)
	return users, nil
}
