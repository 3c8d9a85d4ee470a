package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/idmap"
	ingdomain "github.com/medikart/masterdata/internal/ingestion/domain"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	overlaydomain "github.com/medikart/masterdata/internal/overlay/domain"
	"github.com/medikart/masterdata/internal/search"
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

var ErrInvalidRequest = errors.New("invalid_request")

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
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, meddomain.ErrPolicyDenied):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "verified record protected",
		}
	case errors.Is(err, meddomain.ErrConflict),
		errors.Is(err, ingdomain.ErrAlreadyResolved):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, search.ErrIndexUnavailable):
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

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isMedicineValidationError(err),
		isOverlayValidationError(err),
		isIngestionValidationError(err),
		errors.Is(err, idmap.ErrInvalidOldID):
		return true
	default:
		return false
	}
}

func isMedicineValidationError(err error) bool {
	switch {
	case errors.Is(err, meddomain.ErrInvalidName),
		errors.Is(err, meddomain.ErrInvalidComposition),
		errors.Is(err, meddomain.ErrInvalidManufacturer),
		errors.Is(err, meddomain.ErrInvalidForm),
		errors.Is(err, meddomain.ErrInvalidPackSize),
		errors.Is(err, meddomain.ErrInvalidGstRate):
		return true
	default:
		return false
	}
}

func isOverlayValidationError(err error) bool {
	switch {
	case errors.Is(err, overlaydomain.ErrStoreRequired),
		errors.Is(err, overlaydomain.ErrInvalidStock),
		errors.Is(err, overlaydomain.ErrInvalidPrice),
		errors.Is(err, overlaydomain.ErrInvalidDiscount),
		errors.Is(err, overlaydomain.ErrInvalidGstRate):
		return true
	default:
		return false
	}
}

func isIngestionValidationError(err error) bool {
	switch {
	case errors.Is(err, ingdomain.ErrStoreRequired),
		errors.Is(err, ingdomain.ErrInvalidSource):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, meddomain.ErrNotFound),
		errors.Is(err, meddomain.ErrVersionNotFound),
		errors.Is(err, overlaydomain.ErrOverlayNotFound),
		errors.Is(err, ingdomain.ErrPendingNotFound),
		errors.Is(err, idmap.ErrMappingNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
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
