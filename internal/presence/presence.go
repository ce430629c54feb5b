// Package presence tracks last-seen records per username with TTL expiry.
// A user is online iff a non-expired record exists; records are never
// removed explicitly.
package presence

import (
	"context"
	"strings"
)

const keyPrefix = "seen:"

type Tracker interface {
	// Touch records the current time against username, resetting the TTL
	// clock. Idempotent under repeated calls.
	Touch(ctx context.Context, username string) error
	IsOnline(ctx context.Context, username string) (bool, error)
	ListOnline(ctx context.Context) ([]string, error)
}

func seenKey(username string) string {
	return keyPrefix + username
}

func usernameFromKey(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
