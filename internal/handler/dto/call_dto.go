package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/marnevik/prompt-service-api/internal/domain/call"
)

type ExecuteRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Title    string `json:"title"`
}

type ExecuteResponse struct {
	PredefinedPrompt     string  `json:"predefined_prompt"`
	AIResponse           *string `json:"ai_response"`
	GeneratedDescription *string `json:"generated_description"`
	ExecutionTimeMS      int64   `json:"execution_time_ms"`
	Quota                Quota   `json:"quota"`
}

type ItemRequest struct {
	ItemName      string `json:"itemName" binding:"required"`
	Description   string `json:"description"`
	SpendCategory string `json:"spendCategory" binding:"required"`
}

type ItemResponse struct {
	ItemName        string          `json:"item_name"`
	SpendCategory   string          `json:"spend_category"`
	Result          json.RawMessage `json:"result"`
	ExecutionTimeMS int64           `json:"execution_time_ms"`
	Quota           Quota           `json:"quota"`
}

type TemplateExecuteRequest struct {
	Variables map[string]string `json:"variables"`
}

type TemplateExecuteResponse struct {
	TemplateID       uuid.UUID `json:"template_id"`
	TemplateName     string    `json:"template_name"`
	PredefinedPrompt string    `json:"predefined_prompt"`
	AIResponse       *string   `json:"ai_response"`
	ExecutionTimeMS  int64     `json:"execution_time_ms"`
	Quota            Quota     `json:"quota"`
}

type Quota struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

type CallLogEntry struct {
	ID              int64     `json:"id"`
	Endpoint        string    `json:"endpoint"`
	Method          string    `json:"method"`
	StatusCode      int       `json:"status_code"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	IPAddress       string    `json:"ip_address"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewCallLogEntry(rec *call.Record) *CallLogEntry {
	return &CallLogEntry{
		ID:              rec.ID,
		Endpoint:        rec.Endpoint,
		Method:          rec.Method,
		StatusCode:      rec.StatusCode,
		ExecutionTimeMS: rec.ExecutionTimeMS,
		IPAddress:       rec.IPAddress,
		CreatedAt:       rec.CreatedAt,
	}
}

type CallLogsResponse struct {
	Logs       []*CallLogEntry `json:"logs"`
	Pagination Pagination      `json:"pagination"`
}

type AdminCallsResponse struct {
	Data       []*call.AdminRecord `json:"data"`
	Pagination Pagination          `json:"pagination"`
}

type StatisticsResponse struct {
	Period     string            `json:"period"`
	Statistics *call.GlobalStats `json:"statistics"`
}

type ValidateRequest struct {
	Endpoint     string          `json:"endpoint"`
	Method       string          `json:"method"`
	StatusCode   int             `json:"status_code"`
	RequestBody  json.RawMessage `json:"request_body"`
	ResponseBody json.RawMessage `json:"response_body"`
}

type ValidateResponse struct {
	Valid bool         `json:"valid"`
	Data  *KeyResponse `json:"data"`
}
