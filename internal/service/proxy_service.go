package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/apikey"
	"github.com/marnevik/prompt-service-api/internal/domain/template"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"github.com/marnevik/prompt-service-api/internal/metrics"
	"go.uber.org/zap"
)

// Generator is the single synchronous call the external text provider
// exposes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	outcomeSuccess       = "success"
	outcomeProviderError = "provider_error"
	outcomeQuotaExceeded = "quota_exceeded"
)

// ProxyService executes provider-backed generation calls on behalf of a
// validated key: quota pre-check, prompt construction, provider invocation,
// then accounting through the UsageService. A provider failure is accounted
// like a success: the call was attempted, so it consumes quota and lands in
// the ledger with its error message.
type ProxyService struct {
	descGen    Generator
	itemGen    Generator
	templates  template.Registry
	accountant *UsageService
	logger     *zap.Logger
}

func NewProxyService(descGen, itemGen Generator, templates template.Registry, accountant *UsageService, logger *zap.Logger) *ProxyService {
	return &ProxyService{
		descGen:    descGen,
		itemGen:    itemGen,
		templates:  templates,
		accountant: accountant,
		logger:     logger.Named("ProxyService"),
	}
}

func buildDescriptionPrompt(title string) string {
	return fmt.Sprintf(`Generate a clear, helpful, well-structured task description and instructions for completing the task.
Task title: %q

Output should be:
- 10 to 15 sentences
- No bullet points
- Professional tone`, title)
}

func buildItemPrompt(itemName, description, spendCategory string) string {
	if description == "" {
		description = "N/A"
	}
	return fmt.Sprintf(`You are an expert product content generator.

Input:
- Item Name: %q
- Description (optional): %q
- Spend Category: %q

Generate a STRICTLY VALID JSON response in the following format only.
Do NOT include markdown, explanations, or extra text.

{
  "detailed_description": "6 to 8 professional sentences describing the item, its usage, benefits, and relevance to the spend category.",
  "specifications": [
    { "attribute": "Attribute name", "potential_values": ["Value 1", "Value 2"] }
  ]
}

Rules:
- Description must be natural, professional, and procurement-friendly
- Include 5 to 7 realistic specifications
- Attribute names must be concise
- Potential values must be realistic and commonly used`, itemName, description, spendCategory)
}

// ExecuteDescription handles the plain-text generation endpoint.
func (s *ProxyService) ExecuteDescription(ctx context.Context, key *apikey.APIKey, req *dto.ExecuteRequest, meta RequestMeta) (*dto.ExecuteResponse, int, error) {
	start := time.Now()

	requestBody, _ := json.Marshal(req)

	if key.Remaining() <= 0 {
		s.rejectExhausted(ctx, key, req.Endpoint, requestBody, meta)
		return nil, 0, ierr.ErrQuotaExceeded
	}

	prompt := buildDescriptionPrompt(req.Title)

	aiText, provErr := s.descGen.Generate(ctx, prompt)
	executionTime := time.Since(start)
	metrics.ProviderRequestDuration.WithLabelValues(req.Endpoint).Observe(executionTime.Seconds())

	statusCode := 200
	var aiResponse *string
	var errMsg *string
	if provErr != nil {
		statusCode = 500
		msg := provErr.Error()
		errMsg = &msg
		s.logger.Warn("Provider call failed", zap.String("endpoint", req.Endpoint), zap.Error(provErr))
	} else {
		aiResponse = &aiText
	}

	responseBody, _ := json.Marshal(map[string]any{"prompt": prompt, "ai_response": aiResponse})

	usage, err := s.accountant.Account(ctx, key, CallOutcome{
		Endpoint:        req.Endpoint,
		Method:          "POST",
		StatusCode:      statusCode,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		ErrorMessage:    errMsg,
		ExecutionTimeMS: executionTime.Milliseconds(),
		Meta:            meta,
	})
	if err != nil {
		if errors.Is(err, apikey.ErrQuotaExhausted) {
			// Another call on the same key drained the quota while the
			// provider was running.
			s.rejectExhausted(ctx, key, req.Endpoint, requestBody, meta)
			return nil, 0, ierr.ErrQuotaExceeded
		}
		return nil, 0, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.observe(req.Endpoint, provErr)

	return &dto.ExecuteResponse{
		PredefinedPrompt:     prompt,
		AIResponse:           aiResponse,
		GeneratedDescription: aiResponse,
		ExecutionTimeMS:      executionTime.Milliseconds(),
		Quota: dto.Quota{
			Used:      usage.UsedCalls,
			Remaining: usage.RemainingCalls,
			Total:     key.TotalCalls,
		},
	}, statusCode, nil
}

// ExecuteItem handles the strict-JSON product content endpoint. A provider
// answer that fails to parse as JSON is a provider error, not something to
// pass through silently.
func (s *ProxyService) ExecuteItem(ctx context.Context, key *apikey.APIKey, req *dto.ItemRequest, meta RequestMeta) (*dto.ItemResponse, int, error) {
	const endpoint = "/items"
	start := time.Now()

	requestBody, _ := json.Marshal(req)

	if key.Remaining() <= 0 {
		s.rejectExhausted(ctx, key, endpoint, requestBody, meta)
		return nil, 0, ierr.ErrQuotaExceeded
	}

	prompt := buildItemPrompt(req.ItemName, req.Description, req.SpendCategory)

	aiText, provErr := s.itemGen.Generate(ctx, prompt)
	var parsed json.RawMessage
	if provErr == nil {
		if !json.Valid([]byte(aiText)) {
			provErr = fmt.Errorf("provider returned invalid JSON")
		} else {
			parsed = json.RawMessage(aiText)
		}
	}

	executionTime := time.Since(start)
	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(executionTime.Seconds())

	statusCode := 200
	var errMsg *string
	if provErr != nil {
		statusCode = 500
		msg := provErr.Error()
		errMsg = &msg
		s.logger.Warn("Item generation failed", zap.String("item", req.ItemName), zap.Error(provErr))
	}

	responseBody, _ := json.Marshal(map[string]any{"prompt": prompt, "ai_response": parsed})

	usage, err := s.accountant.Account(ctx, key, CallOutcome{
		Endpoint:        endpoint,
		Method:          "POST",
		StatusCode:      statusCode,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		ErrorMessage:    errMsg,
		ExecutionTimeMS: executionTime.Milliseconds(),
		Meta:            meta,
	})
	if err != nil {
		if errors.Is(err, apikey.ErrQuotaExhausted) {
			s.rejectExhausted(ctx, key, endpoint, requestBody, meta)
			return nil, 0, ierr.ErrQuotaExceeded
		}
		return nil, 0, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.observe(endpoint, provErr)

	return &dto.ItemResponse{
		ItemName:        req.ItemName,
		SpendCategory:   req.SpendCategory,
		Result:          parsed,
		ExecutionTimeMS: executionTime.Milliseconds(),
		Quota: dto.Quota{
			Used:      usage.UsedCalls,
			Remaining: usage.RemainingCalls,
			Total:     key.TotalCalls,
		},
	}, statusCode, nil
}

// ExecuteTemplate renders a stored prompt template with the caller's
// variables and runs it through the provider. Unresolved placeholders stay
// in the prompt verbatim.
func (s *ProxyService) ExecuteTemplate(ctx context.Context, key *apikey.APIKey, templateID uuid.UUID, req *dto.TemplateExecuteRequest, meta RequestMeta) (*dto.TemplateExecuteResponse, int, error) {
	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			return nil, 0, fmt.Errorf("%w: prompt template %s", ierr.ErrNotFound, templateID)
		}
		return nil, 0, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	endpoint := tpl.Endpoint
	if endpoint == "" {
		endpoint = "/templates/" + templateID.String()
	}

	start := time.Now()
	requestBody, _ := json.Marshal(req)

	if key.Remaining() <= 0 {
		s.rejectExhausted(ctx, key, endpoint, requestBody, meta)
		return nil, 0, ierr.ErrQuotaExceeded
	}

	prompt := template.Render(tpl.PromptTemplate, req.Variables)

	aiText, provErr := s.descGen.Generate(ctx, prompt)
	executionTime := time.Since(start)
	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(executionTime.Seconds())

	statusCode := 200
	var aiResponse *string
	var errMsg *string
	if provErr != nil {
		statusCode = 500
		msg := provErr.Error()
		errMsg = &msg
		s.logger.Warn("Template generation failed", zap.String("template_id", templateID.String()), zap.Error(provErr))
	} else {
		aiResponse = &aiText
	}

	responseBody, _ := json.Marshal(map[string]any{"prompt": prompt, "ai_response": aiResponse})

	usage, err := s.accountant.Account(ctx, key, CallOutcome{
		Endpoint:        endpoint,
		Method:          "POST",
		StatusCode:      statusCode,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		ErrorMessage:    errMsg,
		ExecutionTimeMS: executionTime.Milliseconds(),
		Meta:            meta,
	})
	if err != nil {
		if errors.Is(err, apikey.ErrQuotaExhausted) {
			s.rejectExhausted(ctx, key, endpoint, requestBody, meta)
			return nil, 0, ierr.ErrQuotaExceeded
		}
		return nil, 0, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.observe(endpoint, provErr)

	return &dto.TemplateExecuteResponse{
		TemplateID:       tpl.ID,
		TemplateName:     tpl.Name,
		PredefinedPrompt: prompt,
		AIResponse:       aiResponse,
		ExecutionTimeMS:  executionTime.Milliseconds(),
		Quota: dto.Quota{
			Used:      usage.UsedCalls,
			Remaining: usage.RemainingCalls,
			Total:     key.TotalCalls,
		},
	}, statusCode, nil
}

// rejectExhausted records the 429 attempt in the ledger with zero execution
// time and no counter change.
func (s *ProxyService) rejectExhausted(ctx context.Context, key *apikey.APIKey, endpoint string, requestBody json.RawMessage, meta RequestMeta) {
	metrics.QuotaRejectionsTotal.Inc()
	metrics.ProxyCallsTotal.WithLabelValues(endpoint, outcomeQuotaExceeded).Inc()

	errMsg := "Quota exceeded"
	responseBody, _ := json.Marshal(map[string]string{"error": "quota_exceeded"})

	s.accountant.RecordRejection(ctx, key, CallOutcome{
		Endpoint:        endpoint,
		Method:          "POST",
		StatusCode:      429,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		ErrorMessage:    &errMsg,
		ExecutionTimeMS: 0,
		Meta:            meta,
	})
}

func (s *ProxyService) observe(endpoint string, provErr error) {
	if provErr != nil {
		metrics.ProxyCallsTotal.WithLabelValues(endpoint, outcomeProviderError).Inc()
		return
	}
	metrics.ProxyCallsTotal.WithLabelValues(endpoint, outcomeSuccess).Inc()
}
