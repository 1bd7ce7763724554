package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/bizhub/internal/activity/domain"
	assetdomain "github.com/smallbiznis/bizhub/internal/asset/domain"
	customerdomain "github.com/smallbiznis/bizhub/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/bizhub/internal/invoice/domain"
	userdomain "github.com/smallbiznis/bizhub/internal/user/domain"
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
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
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

// validationFields maps service sentinel errors to the offending field so
// the response tells the caller exactly what to fix.
var validationFields = map[error]string{
	activitydomain.ErrInvalidAction:     "action",
	activitydomain.ErrInvalidEntityType: "entity_type",
	activitydomain.ErrUnknownEntityType: "entity_type",
	activitydomain.ErrInvalidEntityID:   "entity_id",
	activitydomain.ErrInvalidSummary:    "summary",
	activitydomain.ErrInvalidActor:      "actor_user_id",
	activitydomain.ErrInvalidTimeRange:  "start_at",
	activitydomain.ErrInvalidPageToken:  "page_token",

	invoicedomain.ErrInvalidID:           "invoice_id",
	invoicedomain.ErrInvalidCustomer:     "customer_id",
	invoicedomain.ErrUnsupportedCurrency: "currency",
	invoicedomain.ErrInvalidStatus:       "status",
	invoicedomain.ErrInvalidDescription:  "description",
	invoicedomain.ErrInvalidQuantity:     "quantity",
	invoicedomain.ErrInvalidAmount:       "unit_amount_cents",
	invoicedomain.ErrInvalidReason:       "reason",
	invoicedomain.ErrInvalidPageToken:    "page_token",

	customerdomain.ErrInvalidID:           "customer_id",
	customerdomain.ErrInvalidName:         "name",
	customerdomain.ErrInvalidEmail:        "email",
	customerdomain.ErrUnsupportedCurrency: "currency",
	customerdomain.ErrInvalidPageToken:    "page_token",

	assetdomain.ErrInvalidID:           "asset_id",
	assetdomain.ErrInvalidName:         "name",
	assetdomain.ErrInvalidQuantity:     "quantity",
	assetdomain.ErrInvalidAmount:       "amount_cents",
	assetdomain.ErrUnsupportedCurrency: "currency",
	assetdomain.ErrInvalidPageToken:    "page_token",

	userdomain.ErrInvalidID:    "user_id",
	userdomain.ErrInvalidEmail: "email",
	userdomain.ErrInvalidName:  "display_name",
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	for sentinel, field := range validationFields {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors: []ValidationError{
					{
						Field:   field,
						Code:    sentinel.Error(),
						Message: sentinel.Error(),
					},
				},
			}
		}
	}

	switch {
	case errors.Is(err, invoicedomain.ErrItemAlreadyVoided):
		return http.StatusConflict, errorPayload{
			Type:    "already_voided",
			Message: "invoice item is already voided",
		}
	case errors.Is(err, customerdomain.ErrAlreadyDeleted),
		errors.Is(err, assetdomain.ErrAlreadyDeleted),
		errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, userdomain.ErrDuplicateEmail),
		errors.Is(err, assetdomain.ErrDuplicateSlug):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate",
			Message: err.Error(),
		}
	case errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrItemNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, assetdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "server_error", payload.Type
	case status >= 400:
		return "client_error", payload.Type
	default:
		return "", ""
	}
}
