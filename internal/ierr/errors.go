package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrProvider       = errors.New("generation provider failed")
	ErrInternalServer = errors.New("internal server error")

	ErrAPIKeyRequired = errors.New("api key is required")
	ErrAPIKeyInvalid  = errors.New("invalid api key")
	ErrAPIKeyRevoked  = errors.New("api key is revoked or disabled")
)
