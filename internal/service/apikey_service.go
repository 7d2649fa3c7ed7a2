package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"go.uber.org/zap"
)

type APIKeyService struct {
	store  apikey.Store
	ledger call.Ledger
	logger *zap.Logger
}

func NewAPIKeyService(store apikey.Store, ledger call.Ledger, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		store:  store,
		ledger: ledger,
		logger: logger.Named("APIKeyService"),
	}
}

// GenerateToken produces an opaque 256-bit secret, hex encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, apikey.SecretByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (s *APIKeyService) Generate(ctx context.Context, name string, totalCalls int) (*dto.GenerateKeyResponse, error) {
	if name == "" {
		name = "Unnamed Key"
	}

	token, err := GenerateToken()
	if err != nil {
		s.logger.Error("Failed to generate key secret", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key secret: %v", ierr.ErrInternalServer, err)
	}

	created, err := s.store.Create(ctx, &apikey.APIKey{
		Token:      token,
		Name:       name,
		TotalCalls: totalCalls,
	})
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("store error creating api key: %w", err)
	}

	s.logger.Info("API key generated", zap.String("id", created.ID.String()), zap.String("name", created.Name), zap.Int("total_calls", created.TotalCalls))

	return &dto.GenerateKeyResponse{
		Message: "API Key generated successfully",
		Key: dto.GeneratedKey{
			ID:         created.ID,
			Token:      created.Token,
			Name:       created.Name,
			TotalCalls: created.TotalCalls,
			UsedCalls:  created.UsedCalls,
			IsActive:   created.IsActive,
			CreatedAt:  created.CreatedAt,
		},
		Warning: "Save your API key securely. You won't be able to see it again!",
	}, nil
}

func (s *APIKeyService) List(ctx context.Context, page, limit int) (*dto.KeyListResponse, error) {
	offset := (page - 1) * limit

	keys, total, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store error listing api keys: %w", err)
	}

	responses := make([]*dto.KeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = dto.NewKeyResponse(key)
	}

	return &dto.KeyListResponse{
		Data:       responses,
		Pagination: dto.NewPagination(total, page, limit),
	}, nil
}

func (s *APIKeyService) Get(ctx context.Context, id uuid.UUID) (*dto.KeyResponse, error) {
	key, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: api key %s", ierr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("store error finding api key: %w", err)
	}

	return dto.NewKeyResponse(key), nil
}

func (s *APIKeyService) Stats(ctx context.Context, id uuid.UUID) (*dto.KeyStatsResponse, error) {
	key, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: api key %s", ierr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("store error finding api key: %w", err)
	}

	stats, err := s.ledger.StatsForKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ledger error aggregating key stats: %w", err)
	}

	return &dto.KeyStatsResponse{
		KeyInfo:    dto.NewKeyResponse(key),
		Statistics: stats,
	}, nil
}

func (s *APIKeyService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*dto.KeyStateResponse, error) {
	key, err := s.store.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: api key %s", ierr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("store error updating api key state: %w", err)
	}

	message := "API key revoked successfully"
	if active {
		message = "API key reactivated successfully"
	}
	s.logger.Info("API key state changed", zap.String("id", id.String()), zap.Bool("is_active", active))

	return &dto.KeyStateResponse{
		Message: message,
		Key: dto.KeyStateInfo{
			ID:        key.ID,
			Name:      key.Name,
			IsActive:  key.IsActive,
			UpdatedAt: key.UpdatedAt,
		},
	}, nil
}

// Delete removes the key permanently. Ledger records referencing it are left
// in place; the audit trail outlives the key.
func (s *APIKeyService) Delete(ctx context.Context, id uuid.UUID) (*dto.KeyDeletedResponse, error) {
	key, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: api key %s", ierr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("store error deleting api key: %w", err)
	}

	s.logger.Info("API key deleted", zap.String("id", id.String()), zap.String("name", key.Name))

	return &dto.KeyDeletedResponse{
		Message: "API key deleted successfully",
		Key: dto.KeyDeletedInfo{
			ID:   key.ID,
			Name: key.Name,
		},
	}, nil
}
