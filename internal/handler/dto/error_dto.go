package dto

// ErrorResponse is the structured error body exposed to API consumers. The
// quota fields only appear on quota rejections.
type ErrorResponse struct {
	Error          string       `json:"error"`
	Details        []FieldError `json:"details,omitempty"`
	RemainingCalls *int         `json:"remaining_calls,omitempty"`
	TotalCalls     *int         `json:"total_calls,omitempty"`
	UsedCalls      *int         `json:"used_calls,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
