package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
)

type GenerateKeyRequest struct {
	TotalCalls int    `json:"total_calls" binding:"required,gt=0"`
	Name       string `json:"name"`
}

// GeneratedKey carries the full secret. It appears exactly once, in the
// generate response; every other projection masks the token.
type GeneratedKey struct {
	ID         uuid.UUID `json:"id"`
	Token      string    `json:"apikey"`
	Name       string    `json:"name"`
	TotalCalls int       `json:"total_calls"`
	UsedCalls  int       `json:"used_calls"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type GenerateKeyResponse struct {
	Message string       `json:"message"`
	Key     GeneratedKey `json:"key"`
	Warning string       `json:"warning"`
}

type KeyResponse struct {
	ID             uuid.UUID  `json:"id"`
	Token          string     `json:"apikey"`
	Name           string     `json:"name"`
	TotalCalls     int        `json:"total_calls"`
	UsedCalls      int        `json:"used_calls"`
	RemainingCalls int        `json:"remaining_calls"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

func NewKeyResponse(key *apikey.APIKey) *KeyResponse {
	return &KeyResponse{
		ID:             key.ID,
		Token:          apikey.MaskToken(key.Token),
		Name:           key.Name,
		TotalCalls:     key.TotalCalls,
		UsedCalls:      key.UsedCalls,
		RemainingCalls: key.Remaining(),
		IsActive:       key.IsActive,
		CreatedAt:      key.CreatedAt,
		UpdatedAt:      key.UpdatedAt,
		LastUsedAt:     key.LastUsedAt,
	}
}

type KeyListResponse struct {
	Data       []*KeyResponse `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

type KeyStateResponse struct {
	Message string       `json:"message"`
	Key     KeyStateInfo `json:"key"`
}

type KeyStateInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type KeyDeletedResponse struct {
	Message string         `json:"message"`
	Key     KeyDeletedInfo `json:"key"`
}

type KeyDeletedInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type KeyStatsResponse struct {
	KeyInfo    *KeyResponse `json:"key_info"`
	Statistics any          `json:"statistics"`
}
