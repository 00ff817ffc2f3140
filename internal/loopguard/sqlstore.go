package loopguard

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type dedupEntry struct {
	bun.BaseModel `bun:"table:dedup_entries,alias:de"`

	ExternalID string    `bun:"external_id,pk"`
	InsertedAt time.Time `bun:"inserted_at,notnull"`
}

// SQLGuard is the durable Guard backed by the shared bun store, so the
// suppression window survives a process restart. Expiry is lazy: stale rows
// are treated as absent and cleared opportunistically on read.
type SQLGuard struct {
	db  *bun.DB
	ttl time.Duration
}

func NewSQLGuard(db *bun.DB, ttl time.Duration) *SQLGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLGuard{db: db, ttl: ttl}
}

// CreateSchema creates the dedup table if missing.
func (g *SQLGuard) CreateSchema(ctx context.Context) error {
	_, err := g.db.NewCreateTable().
		Model((*dedupEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (g *SQLGuard) RecordSelfPosted(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}

	entry := &dedupEntry{
		ExternalID: externalID,
		InsertedAt: time.Now().UTC(),
	}
	_, err := g.db.NewInsert().
		Model(entry).
		On("CONFLICT (external_id) DO UPDATE").
		Set("inserted_at = EXCLUDED.inserted_at").
		Exec(ctx)
	return err
}

func (g *SQLGuard) IsSelfPosted(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}

	var entry dedupEntry
	err := g.db.NewSelect().
		Model(&entry).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if time.Since(entry.InsertedAt) > g.ttl {
		// Stale; clear it while we are here.
		_, _ = g.db.NewDelete().
			Model((*dedupEntry)(nil)).
			Where("external_id = ?", externalID).
			Exec(ctx)
		return false, nil
	}
	return true, nil
}
