package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
	"github.com/smallbiznis/invoicereminder/internal/dispatch"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"github.com/smallbiznis/invoicereminder/internal/scheduler"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrDuplicateEmail),
		errors.Is(err, scheduler.ErrJobExists),
		errors.Is(err, scheduledomain.ErrNotScheduled):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, dispatch.ErrOperationCanceled):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "canceled",
			Message: "dispatch canceled",
		}
	case errors.Is(err, dispatch.ErrOperationFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "dispatch_failed",
			Message: "dispatch failed",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, scheduledomain.ErrNotScheduled):
		return "schedule has no live trigger"
	case errors.Is(err, userdomain.ErrDuplicateEmail):
		return "email already registered"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// validationErrors are the domain sentinels reported as 400s, keyed by the
// code returned to the client.
var validationErrors = []struct {
	err  error
	code string
}{
	{ErrInvalidRequest, "invalid_request"},
	{userdomain.ErrInvalidID, "invalid_id"},
	{userdomain.ErrInvalidName, "invalid_name"},
	{userdomain.ErrInvalidEmail, "invalid_email"},
	{userdomain.ErrInvalidSender, "invalid_sender"},
	{userdomain.ErrInvalidBeneficiary, "invalid_beneficiary"},
	{userdomain.ErrInvalidDocumentType, "invalid_document_type"},
	{userdomain.ErrInvalidToken, "invalid_token"},
	{userdomain.ErrInvalidProvider, "invalid_provider"},
	{scheduledomain.ErrInvalidID, "invalid_id"},
	{scheduledomain.ErrInvalidUser, "invalid_user"},
	{scheduledomain.ErrInvalidCron, "invalid_cron"},
	{scheduler.ErrInvalidCron, "invalid_cron"},
	{invoicedomain.ErrInvalidID, "invalid_id"},
	{invoicedomain.ErrInvalidUser, "invalid_user"},
	{invoicedomain.ErrInvalidAmount, "invalid_amount"},
	{barcode.ErrUnsupportedDocumentType, "invalid_document_type"},
}

func validationErrorCode(err error) (string, bool) {
	for _, v := range validationErrors {
		if errors.Is(err, v.err) {
			return v.code, true
		}
	}
	return "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, scheduledomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, scheduler.ErrJobNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_cron":
		return "invalid cron expression"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog labels handler errors for the request log.
func classifyErrorForLog(err error) string {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError && payload.Type == "internal_error" {
		return "internal"
	}
	return payload.Type
}
