package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different types of fetch errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// ErrMissingRequiredConfig is matched by ConfigurationErrors raised for a required setting
// that is absent.
var ErrMissingRequiredConfig = errors.New("missing required config")

// ConfigurationError is fatal and aborts a run before any record is emitted
type ConfigurationError struct {
	Field   string
	Message string
	missing bool
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// Is reports whether target is ErrMissingRequiredConfig for missing-setting errors
func (e *ConfigurationError) Is(target error) bool {
	return e.missing && target == ErrMissingRequiredConfig
}

// NewConfigurationError creates a configuration error for the given field
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MissingRequiredConfig creates a configuration error for an absent required field
func MissingRequiredConfig(field string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: "required setting is missing",
		missing: true,
	}
}

// ExtractionError reports a response body that could not be decoded as JSON
type ExtractionError struct {
	Stream   string
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error in stream %q (selector %s): %v", e.Stream, e.Selector, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// FetchError represents an HTTP layer error with type information
type FetchError struct {
	Type       ErrorType
	Message    string
	Code       int
	RetryAfter time.Duration
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsConfiguration reports whether err is or wraps a ConfigurationError
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsExtraction reports whether err is or wraps an ExtractionError
func IsExtraction(err error) bool {
	var extErr *ExtractionError
	return errors.As(err, &extErr)
}

// AsFetch returns the FetchError wrapped by err, if any
func AsFetch(err error) (*FetchError, bool) {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr, true
	}
	return nil, false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	case 400, 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
