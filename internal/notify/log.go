package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certregistry/internal/platform/redis"
)

// NotificationLog grants at-most-once-per-day delivery. MarkOnce returns true
// exactly once per (certificate, category, day) tuple.
type NotificationLog interface {
	MarkOnce(ctx context.Context, certificateID int64, category Category, day time.Time) (bool, error)
}

// markerTTL keeps delivery markers long enough to cover clock skew between
// sweep runs, then lets them expire.
const markerTTL = 48 * time.Hour

// RedisLog stores delivery markers as SETNX keys with a TTL.
type RedisLog struct {
	client *redis.Client
}

// NewRedisLog constructs a Redis-backed notification log.
func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client}
}

func (l *RedisLog) MarkOnce(ctx context.Context, certificateID int64, category Category, day time.Time) (bool, error) {
	key := markerKey(certificateID, category, day)
	ok, err := l.client.SetNX(ctx, key, "1", markerTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark notification: %w", err)
	}
	return ok, nil
}

func markerKey(certificateID int64, category Category, day time.Time) string {
	return fmt.Sprintf("notify:%d:%s:%s", certificateID, category, day.Format("2006-01-02"))
}

// MemoryLog is the in-memory notification log for tests and single-node runs
// without Redis.
type MemoryLog struct {
	mu      sync.Mutex
	markers map[string]struct{}
}

// NewMemoryLog constructs an empty in-memory notification log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{markers: make(map[string]struct{})}
}

func (l *MemoryLog) MarkOnce(_ context.Context, certificateID int64, category Category, day time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := markerKey(certificateID, category, day)
	if _, seen := l.markers[key]; seen {
		return false, nil
	}
	l.markers[key] = struct{}{}
	return true, nil
}
