package call

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Ledger interface {
	// Append inserts one record. The ledger is insert-only; nothing in the
	// service ever updates or deletes rows.
	Append(ctx context.Context, rec *Record) error

	ListByKey(ctx context.Context, keyID uuid.UUID, limit, offset int) ([]*Record, int64, error)
	ListAll(ctx context.Context, limit, offset int) ([]*AdminRecord, int64, error)

	StatsForKey(ctx context.Context, keyID uuid.UUID) (*KeyStats, error)
	GlobalStatsSince(ctx context.Context, since time.Time) (*GlobalStats, error)
}
