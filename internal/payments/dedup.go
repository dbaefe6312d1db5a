package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Deduper remembers provider event ids so webhook replays can be short-cut
// before touching the order store. Checking and marking are separate steps:
// an id is only marked once the event's side effects have been applied, so a
// failed apply stays retryable when the provider redelivers. It is a fast
// path only: the conditional payment.isPaid update remains the durable
// idempotency guard.
type Deduper interface {
	// Seen reports whether the event id has been marked.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Mark records the event id once its processing is finished.
	Mark(ctx context.Context, eventID string) error
}

const dedupTTL = 24 * time.Hour

func dedupKey(eventID string) string {
	return fmt.Sprintf("webhook-event:%s", eventID)
}

type RedisDeduper struct {
	rdb *redis.Client
}

func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{rdb: rdb}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	return d.rdb.Set(ctx, dedupKey(eventID), "seen", dedupTTL).Err()
}

// MemoryDeduper is the in-process fallback used when no Redis address is
// configured, and in tests.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, at := range d.seen {
		if now.Sub(at) > dedupTTL {
			delete(d.seen, id)
		}
	}

	_, ok := d.seen[eventID]
	return ok, nil
}

func (d *MemoryDeduper) Mark(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[eventID] = time.Now()
	return nil
}
