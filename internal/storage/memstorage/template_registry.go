package memstorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/template"
)

// TemplateRegistry is an in-memory template.Registry for unit tests.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*template.PromptTemplate
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[uuid.UUID]*template.PromptTemplate),
	}
}

var _ template.Registry = (*TemplateRegistry)(nil)

func (r *TemplateRegistry) Create(_ context.Context, tpl *template.PromptTemplate) (*template.PromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *tpl
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()
	r.templates[stored.ID] = &stored

	copied := stored
	return &copied, nil
}

func (r *TemplateRegistry) FindByID(_ context.Context, id uuid.UUID) (*template.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.templates[id]
	if !ok {
		return nil, template.ErrTemplateNotFound
	}
	copied := *tpl
	return &copied, nil
}

func (r *TemplateRegistry) List(_ context.Context) ([]*template.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*template.PromptTemplate, 0, len(r.templates))
	for _, tpl := range r.templates {
		copied := *tpl
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}
