package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"
	"book-store/internal/service"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", details)
}

// statusBySentinel maps service and repository errors to HTTP statuses.
var statusBySentinel = []struct {
	err    error
	status int
}{
	{service.ErrNotOwner, http.StatusForbidden},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrProductNotInCart, http.StatusForbidden},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidClient, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrTokenExpired, http.StatusUnauthorized},
	{service.ErrEmptyCheckout, http.StatusBadRequest},
	{service.ErrPriceIntegrity, http.StatusConflict},

	{repository.ErrCustomerNotFound, http.StatusNotFound},
	{repository.ErrSupplierNotFound, http.StatusNotFound},
	{repository.ErrProductNotFound, http.StatusNotFound},
	{repository.ErrTagNotFound, http.StatusNotFound},
	{repository.ErrPriceNotFound, http.StatusNotFound},
	{repository.ErrReviewNotFound, http.StatusNotFound},
	{repository.ErrCartNotFound, http.StatusNotFound},
	{repository.ErrSaleNotFound, http.StatusNotFound},
	{repository.ErrApplicationNotFound, http.StatusUnauthorized},
	{repository.ErrAccessTokenNotFound, http.StatusUnauthorized},
	{repository.ErrRefreshTokenNotFound, http.StatusUnauthorized},
	{repository.ErrRefreshTokenRevoked, http.StatusUnauthorized},

	{repository.ErrCustomerAlreadyExists, http.StatusConflict},
	{repository.ErrSupplierAlreadyExists, http.StatusConflict},
	{repository.ErrTagAlreadyExists, http.StatusConflict},
	{repository.ErrCartAlreadyExists, http.StatusConflict},
	{repository.ErrApplicationAlreadyExists, http.StatusConflict},
	{repository.ErrCustomerInUse, http.StatusConflict},
	{repository.ErrActivePriceExists, http.StatusConflict},
	{repository.ErrNoActivePrice, http.StatusConflict},
	{repository.ErrMultipleActivePrices, http.StatusConflict},

	{repository.ErrInvalidSupplier, http.StatusBadRequest},
	{repository.ErrInvalidCustomer, http.StatusBadRequest},
}

// StatusFor returns the HTTP status an error is reported with.
func StatusFor(err error) int {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// RespondWithServiceError writes err with the status StatusFor picks. Server
// errors are logged and their message is not exposed.
func RespondWithServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		RespondWithValidationErrors(w, []ValidationError{{Field: verr.Field, Message: verr.Message}})
		return
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		RespondWithValidationErrors(w, FormatValidationErrors(vErrs))
		return
	}

	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		if status == http.StatusGatewayTimeout {
			RespondWithError(w, status, "request timed out")
			return
		}
		RespondWithError(w, status, "internal server error")
		return
	}
	RespondWithError(w, status, err.Error())
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
