package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the custom error type for the application.
type AppError struct {
	Raw      error             `json:"-"`
	HTTPCode int               `json:"-"`
	Code     ErrorCode         `json:"code"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the ErrorCode from err, or ErrorCode_UNKNOWN when err is
// not an AppError.
func CodeOf(err error) ErrorCode {
	var app AppError
	if errors.As(err, &app) {
		return app.Code
	}
	return ErrorCode_UNKNOWN
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// General Errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// Delivery pipeline errors

// ErrEmptyCapture marks the valid terminal state of a finalize call that found
// transient capture keys present but no transcript and no chat content.
func ErrEmptyCapture() AppError {
	return AppError{
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_EMPTY_CAPTURE,
		Message:  "No transcript or chat messages available to process",
	}
}

// ErrPersistFailure indicates a durable write did not round-trip.
func ErrPersistFailure(key string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_PERSIST_FAILURE,
		Message:  "Failed to persist meeting data",
	}.WithDetail("key", key)
}

// ErrFilenameFailure indicates both the sanitized meeting filename and the
// fixed fallback name failed to produce a file.
func ErrFilenameFailure(filename string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_FILENAME_FAILURE,
		Message:  "Failed to write transcript file",
	}.WithDetail("filename", filename)
}

// ErrWebhookFailed records a webhook delivery failure. Non-fatal for the
// finalize pipeline; retry is exposed as an explicit user action.
func ErrWebhookFailed(url string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_WEBHOOK_FAILURE,
		Message:  "Webhook request failed",
	}.WithDetail("url", url)
}

// Capture path errors

// ErrDomStructure indicates the expected host-page structure was absent for a
// capture target. The session degrades for that target and continues.
func ErrDomStructure(target string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DOM_STRUCTURE_FAILURE,
		Message:  "Host page structure not recognized",
	}.WithDetail("target", target)
}

// AI gateway errors

func ErrAIGatewayFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_AI_GATEWAY_FAILURE,
		Message:  "AI service request failed",
	}
}

func ErrInvalidResponseFormat() AppError {
	return AppError{
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_AI_INVALID_RESPONSE_FORMAT,
		Message:  "Invalid API response format",
	}
}

// Infrastructure errors

func ErrCacheFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CACHE_FAILURE,
		Message:  fmt.Sprintf("Cache operation failed: %s", operation),
	}
}

func ErrDBQueryFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("operation", operation)
}

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}
