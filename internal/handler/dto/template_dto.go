package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/template"
)

type CreateTemplateRequest struct {
	Name           string `json:"name" binding:"required"`
	PromptTemplate string `json:"prompt_template" binding:"required"`
	Endpoint       string `json:"endpoint"`
}

type TemplateResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	PromptTemplate string    `json:"prompt_template"`
	Variables      []string  `json:"variables"`
	Endpoint       string    `json:"endpoint"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewTemplateResponse(tpl *template.PromptTemplate) *TemplateResponse {
	return &TemplateResponse{
		ID:             tpl.ID,
		Name:           tpl.Name,
		PromptTemplate: tpl.PromptTemplate,
		Variables:      tpl.Variables,
		Endpoint:       tpl.Endpoint,
		CreatedAt:      tpl.CreatedAt,
	}
}

type TemplateListResponse struct {
	Success bool                `json:"success"`
	Data    []*TemplateResponse `json:"data"`
}

type TemplateCreatedResponse struct {
	Success bool              `json:"success"`
	Data    *TemplateResponse `json:"data"`
}
