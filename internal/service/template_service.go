package service

import (
	"context"
	"fmt"

	"github.com/marnevik/prompt-service-api/internal/domain/template"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"go.uber.org/zap"
)

type TemplateService struct {
	registry template.Registry
	logger   *zap.Logger
}

func NewTemplateService(registry template.Registry, logger *zap.Logger) *TemplateService {
	return &TemplateService{
		registry: registry,
		logger:   logger.Named("TemplateService"),
	}
}

func (s *TemplateService) Create(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error) {
	tpl := &template.PromptTemplate{
		Name:           template.Normalize(req.Name),
		PromptTemplate: req.PromptTemplate,
		Variables:      template.ExtractVariables(req.PromptTemplate),
		Endpoint:       req.Endpoint,
	}

	created, err := s.registry.Create(ctx, tpl)
	if err != nil {
		s.logger.Error("Failed to create prompt template", zap.String("name", tpl.Name), zap.Error(err))
		return nil, fmt.Errorf("registry error creating template: %w", err)
	}

	s.logger.Info("Prompt template registered",
		zap.String("id", created.ID.String()),
		zap.String("name", created.Name),
		zap.Strings("variables", created.Variables),
	)

	return dto.NewTemplateResponse(created), nil
}

func (s *TemplateService) List(ctx context.Context) ([]*dto.TemplateResponse, error) {
	templates, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry error listing templates: %w", err)
	}

	responses := make([]*dto.TemplateResponse, len(templates))
	for i, tpl := range templates {
		responses[i] = dto.NewTemplateResponse(tpl)
	}
	return responses, nil
}
