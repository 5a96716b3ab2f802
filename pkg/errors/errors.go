package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Document / editing errors
	ErrNoDocument        = errors.New("no document loaded")
	ErrDashboardNotFound = errors.New("dashboard not found")
	ErrWidgetNotFound    = errors.New("widget not found")
	ErrSaveInFlight      = errors.New("save already in flight")
	ErrEditorClosed      = errors.New("editor closed")

	// Registry errors
	ErrTypeNotRegistered = errors.New("widget type not registered")
	ErrDuplicateType     = errors.New("widget type already registered")

	// Subscription errors
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrStreamDisconnected = errors.New("stream channel disconnected")

	// Storage errors
	ErrStorageConnectionFailed = errors.New("storage connection failed")
	ErrStorageWriteFailed      = errors.New("storage write failed")
	ErrStorageReadFailed       = errors.New("storage read failed")
	ErrDataNotFound            = errors.New("data not found")

	// Command errors
	ErrCommandFailed  = errors.New("device command failed")
	ErrDeviceNotFound = errors.New("device not found")
	ErrCommandTimeout = errors.New("device command timeout")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrConfigurationLoad    = errors.New("failed to load configuration")

	// Internal errors
	ErrInternal    = errors.New("internal error")
	ErrUnavailable = errors.New("service unavailable")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeDocument      ErrorType = "document"
	ErrorTypeRegistry      ErrorType = "registry"
	ErrorTypeSubscription  ErrorType = "subscription"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeCommand       ErrorType = "command"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Retryable  bool                   `json:"retryable"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Retryable:  false,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		Retryable:  isRetryable(err),
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewDocumentError creates a document/editing error
func NewDocumentError(code, message string) *AppError {
	return NewAppError(ErrorTypeDocument, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// NewSubscriptionError creates a data subscription error
func NewSubscriptionError(code, message string) *AppError {
	return NewAppError(ErrorTypeSubscription, code, message)
}

// NewCommandError creates a device command error
func NewCommandError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeCommand,
		Code:       code,
		Message:    message,
		Retryable:  true,
		HTTPStatus: 502,
	}
}

// NewNetworkError creates a network error
func NewNetworkError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Code:       code,
		Message:    message,
		Retryable:  true,
		HTTPStatus: 503,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeInternalError,
		Message:    message,
		Retryable:  false,
		HTTPStatus: 500,
	}
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeDocument:
		return 400
	case ErrorTypeRegistry, ErrorTypeStorage:
		return 404
	case ErrorTypeCommand:
		return 502
	case ErrorTypeNetwork, ErrorTypeConfiguration:
		return 503
	default:
		return 500
	}
}

// isRetryable determines if an error is retryable
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrStorageConnectionFailed):
		return true
	case errors.Is(err, ErrStreamDisconnected):
		return true
	case errors.Is(err, ErrCommandTimeout):
		return true
	case errors.Is(err, ErrUnavailable):
		return true
	default:
		return false
	}
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// Error codes for different error scenarios
const (
	// Document error codes
	CodeNoDocument        = "NO_DOCUMENT"
	CodeDashboardNotFound = "DASHBOARD_NOT_FOUND"
	CodeWidgetNotFound    = "WIDGET_NOT_FOUND"
	CodeSaveInFlight      = "SAVE_IN_FLIGHT"

	// Registry error codes
	CodeTypeNotRegistered = "TYPE_NOT_REGISTERED"
	CodeDuplicateType     = "DUPLICATE_TYPE"

	// Subscription error codes
	CodeFetchFailed        = "FETCH_FAILED"
	CodeSubscribeFailed    = "SUBSCRIBE_FAILED"
	CodeSubscriptionClosed = "SUBSCRIPTION_CLOSED"

	// Storage error codes
	CodeStorageError     = "STORAGE_ERROR"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeDataNotFound     = "DATA_NOT_FOUND"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeReadFailed       = "READ_FAILED"

	// Command error codes
	CodeCommandFailed  = "COMMAND_FAILED"
	CodeCommandTimeout = "COMMAND_TIMEOUT"
	CodeDeviceNotFound = "DEVICE_NOT_FOUND"

	// Network error codes
	CodeNetworkError = "NETWORK_ERROR"
	CodeTimeout      = "TIMEOUT"

	// Internal error codes
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
