package memstorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
)

// APIKeyStore is an in-memory apikey.Store used by unit tests and local
// experiments. It honors the same conditional-consume contract as the
// postgres repository: the increment happens under one lock and only while
// used_calls < total_calls.
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*apikey.APIKey
}

func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		keys: make(map[uuid.UUID]*apikey.APIKey),
	}
}

var _ apikey.Store = (*APIKeyStore)(nil)

func (s *APIKeyStore) Create(_ context.Context, key *apikey.APIKey) (*apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *key
	stored.ID = uuid.New()
	stored.UsedCalls = 0
	stored.IsActive = true
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.keys[stored.ID] = &stored

	copied := stored
	return &copied, nil
}

func (s *APIKeyStore) FindByToken(_ context.Context, token string) (*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.keys {
		if key.Token == token {
			copied := *key
			return &copied, nil
		}
	}
	return nil, apikey.ErrKeyNotFound
}

func (s *APIKeyStore) FindByID(_ context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, apikey.ErrKeyNotFound
	}
	copied := *key
	return &copied, nil
}

func (s *APIKeyStore) List(_ context.Context, limit, offset int) ([]*apikey.APIKey, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*apikey.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		copied := *key
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*apikey.APIKey{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *APIKeyStore) ConsumeCall(_ context.Context, id uuid.UUID) (*apikey.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, apikey.ErrQuotaExhausted
	}
	if key.UsedCalls >= key.TotalCalls {
		return nil, apikey.ErrQuotaExhausted
	}

	now := time.Now().UTC()
	key.UsedCalls++
	key.UpdatedAt = now
	key.LastUsedAt = &now

	return &apikey.Usage{
		UsedCalls:      key.UsedCalls,
		RemainingCalls: key.TotalCalls - key.UsedCalls,
	}, nil
}

func (s *APIKeyStore) SetActive(_ context.Context, id uuid.UUID, active bool) (*apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, apikey.ErrKeyNotFound
	}
	key.IsActive = active
	key.UpdatedAt = time.Now().UTC()

	copied := *key
	return &copied, nil
}

func (s *APIKeyStore) Delete(_ context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, apikey.ErrKeyNotFound
	}
	delete(s.keys, id)

	copied := *key
	return &copied, nil
}
