// Package cache memoizes encoded read results per logical key for a fixed
// TTL. Implementations are safe for concurrent use.
package cache

import (
	"context"
	"strconv"
	"time"
)

const DefaultTTL = 30 * time.Second

const (
	KeyCurrent = "current"
	KeyStats   = "stats"
)

// HistoryKey returns the cache key for a history window of the given size.
func HistoryKey(hours int) string {
	return "history:" + strconv.Itoa(hours)
}

// Cache stores opaque values. A Get after expiry or after FlushAll behaves
// as if the key was never set.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	FlushAll(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}
