package template

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrTemplateNotFound = errors.New("prompt template not found")

type Registry interface {
	Create(ctx context.Context, tpl *PromptTemplate) (*PromptTemplate, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PromptTemplate, error)
	List(ctx context.Context) ([]*PromptTemplate, error)
}
