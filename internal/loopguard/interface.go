package loopguard

import (
	"context"
	"time"
)

// DefaultTTL is the window during which a self-posted id suppresses
// processing.
const DefaultTTL = time.Hour

// Guard tracks the external ids of messages the system itself posted so the
// agent never reacts to its own output.
type Guard interface {
	// RecordSelfPosted remembers an external id for the dedup window.
	RecordSelfPosted(ctx context.Context, externalID string) error

	// IsSelfPosted reports whether the id was recorded within the window.
	IsSelfPosted(ctx context.Context, externalID string) (bool, error)
}
