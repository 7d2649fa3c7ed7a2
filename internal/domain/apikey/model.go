package apikey

import (
	"time"

	"github.com/google/uuid"
)

// SecretByteLength is the entropy of a generated key secret before hex
// encoding (256 bits).
const SecretByteLength = 32

type APIKey struct {
	ID         uuid.UUID  `db:"id"`
	Token      string     `db:"apikey"`
	Name       string     `db:"name"`
	TotalCalls int        `db:"total_calls"`
	UsedCalls  int        `db:"used_calls"`
	IsActive   bool       `db:"is_active"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
}

// Remaining is always derived from the counters. The value is never stored,
// so the two columns cannot drift apart.
func (k *APIKey) Remaining() int {
	remaining := k.TotalCalls - k.UsedCalls
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MaskToken hides the middle of a key secret for listings. The full token is
// only ever returned by the generate operation.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
