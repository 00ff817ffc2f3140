package loopguard

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxTrackedIDs bounds the in-memory dedup window. The system posts far
// fewer messages per hour than this in any realistic deployment.
const maxTrackedIDs = 10000

// MemoryGuard is the in-memory Guard. Expiry is handled by the LRU's TTL;
// entries vanish on process restart (use the sqlstore Guard when the window
// must survive restarts).
type MemoryGuard struct {
	entries *expirable.LRU[string, time.Time]
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{
		entries: expirable.NewLRU[string, time.Time](maxTrackedIDs, nil, ttl),
	}
}

func (g *MemoryGuard) RecordSelfPosted(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}
	g.entries.Add(externalID, time.Now())
	return nil
}

func (g *MemoryGuard) IsSelfPosted(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	_, ok := g.entries.Get(externalID)
	return ok, nil
}
