package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/marnevik/prompt-service-api/internal/handler/dto"
	"github.com/marnevik/prompt-service-api/internal/ierr"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))

		status := http.StatusInternalServerError
		resp := dto.ErrorResponse{Error: "Internal server error"}

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			resp.Error = "Input validation failed"
			resp.Details = buildFieldErrors(ve)
		} else {
			switch {
			case errors.Is(err, ierr.ErrValidation):
				status = http.StatusBadRequest
				resp.Error = err.Error()
			case errors.Is(err, ierr.ErrAPIKeyRequired):
				status = http.StatusUnauthorized
				resp.Error = "API key is required"
			case errors.Is(err, ierr.ErrAPIKeyInvalid), errors.Is(err, ierr.ErrUnauthorized):
				status = http.StatusUnauthorized
				resp.Error = "Invalid API key"
			case errors.Is(err, ierr.ErrAPIKeyRevoked), errors.Is(err, ierr.ErrForbidden):
				status = http.StatusForbidden
				resp.Error = "API key is revoked or disabled"
			case errors.Is(err, ierr.ErrQuotaExceeded):
				status = http.StatusTooManyRequests
				resp.Error = "Quota exceeded"
			case errors.Is(err, ierr.ErrNotFound):
				status = http.StatusNotFound
				resp.Error = "The requested resource was not found"
			case errors.Is(err, ierr.ErrConflict):
				status = http.StatusConflict
				resp.Error = err.Error()
			case errors.Is(err, ierr.ErrProvider):
				status = http.StatusInternalServerError
				resp.Error = "Generation provider failed"
			}
		}

		c.AbortWithStatusJSON(status, resp)
	}
}

func buildFieldErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: fieldErrorMessage(fe),
		}
	}
	return details
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "gt":
		return fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("Field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
