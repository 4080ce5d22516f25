package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
	orderdomain "github.com/smallbiznis/triviabees/internal/order/domain"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
	"github.com/smallbiznis/triviabees/pkg/db/pagination"
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
	Type    string
	Code    string
	Message string
	Errors  []ValidationError
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func newErrorResponse(payload errorPayload) errorResponse {
	return errorResponse{
		Error:  payload.Message,
		Code:   payload.Code,
		Errors: payload.Errors,
	}
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
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
		c.AbortWithStatusJSON(status, newErrorResponse(payload))
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

// bindError converts a gin binding failure into field-level validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: fieldErrorMessage(fe),
		})
	}
	return &ValidationErrors{Errors: out}
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalPayload()
	}

	if vErr := asValidationErrors(err); vErr != nil {
		message := "validation error"
		if len(vErr.Errors) > 0 && vErr.Errors[0].Message != "" {
			message = vErr.Errors[0].Message
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    "validation_error",
			Message: message,
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: humanize(code),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: humanize(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, domainPayload("unauthorized", "unauthorized")
	case isNotFoundError(err):
		return http.StatusNotFound, domainPayload("not_found", errorCode(err, "not_found"))
	case isConflictError(err):
		return http.StatusConflict, domainPayload("conflict", errorCode(err, "conflict"))
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, domainPayload("rate_limited", "rate_limited")
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, domainPayload("service_unavailable", "service_unavailable")
	default:
		return http.StatusInternalServerError, internalPayload()
	}
}

// classifyErrorForLog reports the error type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}

func internalPayload() errorPayload {
	return errorPayload{
		Type:    "internal_error",
		Code:    "internal_error",
		Message: "internal server error",
	}
}

func domainPayload(errType, code string) errorPayload {
	return errorPayload{
		Type:    errType,
		Code:    code,
		Message: humanize(code),
	}
}

func errorCode(err error, fallback string) string {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback
	}
	code := err.Error()
	if code == "" || strings.ContainsAny(code, " :") {
		return fallback
	}
	return code
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
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, commissiondomain.ErrInvalidOrderID),
		errors.Is(err, commissiondomain.ErrInvalidUserID),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, referraldomain.ErrInvalidReferralCode),
		errors.Is(err, referraldomain.ErrInvalidUserID),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, errInvalidPageSize):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, commissiondomain.ErrOrderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, commissiondomain.ErrDistributionInProgress),
		errors.Is(err, commissiondomain.ErrBeneficiaryNotFound),
		errors.Is(err, profiledomain.ErrNotFound):
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

func humanize(code string) string {
	return strings.ReplaceAll(code, "_", " ")
}
