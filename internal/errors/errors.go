// Package errors defines structured error types for the API.
package errors

import (
	"fmt"
	"net/http"
	"strconv"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrEmptyCart is returned when a quote is submitted without items
	ErrEmptyCart ErrorCode = "EMPTY_CART"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrProductNotFound is returned when a product is not found
	ErrProductNotFound ErrorCode = "PRODUCT_NOT_FOUND"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrConflict is returned when there is a resource conflict
	ErrConflict ErrorCode = "CONFLICT"
	// ErrUnauthorized is returned when the admin passphrase is missing or wrong
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrRateLimitExceeded is returned when a client sends too many requests
	ErrRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrPayloadTooLarge is returned when the request body exceeds the limit
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

func newAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

func (e *APIError) withDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return newAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// ProductNotFound creates a 404 error for a product id.
func ProductNotFound(id string) *APIError {
	return newAPIError(http.StatusNotFound, ErrProductNotFound, "product not found").withDetail("id", id)
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return newAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return newAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName))
}

// EmptyCart creates a 400 error for a quote submitted without items.
func EmptyCart() *APIError {
	return newAPIError(http.StatusBadRequest, ErrEmptyCart, "cart is empty")
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return newAPIError(http.StatusConflict, ErrConflict, message)
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized() *APIError {
	return newAPIError(http.StatusUnauthorized, ErrUnauthorized, "Unauthorized")
}

// RateLimitExceeded returns a 429 error.
func RateLimitExceeded(retryAfterSeconds int) *APIError {
	return newAPIError(http.StatusTooManyRequests, ErrRateLimitExceeded, "rate limit exceeded, retry after "+strconv.Itoa(retryAfterSeconds)+"s").
		withDetail("retry_after", retryAfterSeconds)
}

// PayloadTooLarge returns a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return newAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "request body too large").withDetail("max_bytes", limit)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return newAPIError(http.StatusInternalServerError, ErrInternal, message).Wrap(err)
}
