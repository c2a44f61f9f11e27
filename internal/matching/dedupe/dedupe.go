// internal/matching/dedupe/dedupe.go

// Package dedupe suppresses duplicate review proposals when several scraped
// records resolve to the same edition. An in-memory set covers the batch
// being matched right now; a Redis set covers concurrent and recent batches.
// The persisted review store is checked by the review collaborator, relying
// on it alone races within a batch.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "competition-matcher/internal/common/errors"
)

// Proposal kinds.
const (
	KindEditionUpdate = "edition-update"
	KindNewEvent      = "new-event"
	KindNewRace       = "new-race"
)

// Proposal identifies one proposed change to the reference store.
type Proposal struct {
	EventID   int64
	EditionID int64
	Kind      string
}

// Key returns the content hash the guards key on. Stable across processes,
// so the in-memory and Redis guards agree.
func (p Proposal) Key() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s", p.EventID, p.EditionID, p.Kind)))
	return hex.EncodeToString(sum[:])
}

// Guard answers whether a proposal was already emitted, recording it as a
// side effect when it was not.
type Guard interface {
	SeenAndRecord(ctx context.Context, p Proposal) (bool, error)
}

// MemoryGuard is the per-batch guard. Safe for concurrent use, never fails.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) SeenAndRecord(_ context.Context, p Proposal) (bool, error) {
	key := p.Key()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return true, nil
	}
	g.seen[key] = struct{}{}
	return false, nil
}

// RedisGuard spans processes. SET NX makes the check-and-record atomic, the
// TTL bounds how long a proposal stays suppressed.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, prefix: "matcher:proposal:"}
}

func (g *RedisGuard) SeenAndRecord(ctx context.Context, p Proposal) (bool, error) {
	created, err := g.client.SetNX(ctx, g.prefix+p.Key(), 1, g.ttl).Result()
	if err != nil {
		return false, apperrors.NewDedupeCheckFailedError(err)
	}
	return !created, nil
}

// CombinedGuard consults the in-memory guard first, the Redis guard second.
// Both record, so a batch-local hit never reaches Redis.
type CombinedGuard struct {
	guards []Guard
}

func NewCombinedGuard(guards ...Guard) *CombinedGuard {
	return &CombinedGuard{guards: guards}
}

func (g *CombinedGuard) SeenAndRecord(ctx context.Context, p Proposal) (bool, error) {
	for _, guard := range g.guards {
		seen, err := guard.SeenAndRecord(ctx, p)
		if err != nil {
			return false, err
		}
		if seen {
			return true, nil
		}
	}
	return false, nil
}
