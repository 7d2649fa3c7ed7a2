package apikey

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrKeyNotFound = errors.New("api key not found")

	// ErrQuotaExhausted is returned by ConsumeCall when the conditional
	// increment matched no row, i.e. used_calls has already reached
	// total_calls.
	ErrQuotaExhausted = errors.New("api key quota exhausted")
)

// Usage is the counter state returned by ConsumeCall after a successful
// increment.
type Usage struct {
	UsedCalls      int
	RemainingCalls int
}

type Store interface {
	Create(ctx context.Context, key *APIKey) (*APIKey, error)
	FindByToken(ctx context.Context, token string) (*APIKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	List(ctx context.Context, limit, offset int) ([]*APIKey, int64, error)

	// ConsumeCall atomically increments used_calls by one and touches
	// last_used_at, as a single conditional statement guarded by
	// used_calls < total_calls. It never reads then writes.
	ConsumeCall(ctx context.Context, id uuid.UUID) (*Usage, error)

	// SetActive flips is_active. Flipping to the current state is not an
	// error.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) (*APIKey, error)
}
