package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingRequiredConfig(t *testing.T) {
	err := fmt.Errorf("starting tap: %w", MissingRequiredConfig("access_token"))

	assert.True(t, errors.Is(err, ErrMissingRequiredConfig))
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), "access_token")
}

func TestConfigurationErrorIsNotMissing(t *testing.T) {
	err := NewConfigurationError("path", "unterminated placeholder in %q", "/{id")

	assert.False(t, errors.Is(err, ErrMissingRequiredConfig))
	assert.True(t, IsConfiguration(err))
	assert.Equal(t, `configuration error (path): unterminated placeholder in "/{id"`, err.Error())
}

func TestExtractionErrorUnwrap(t *testing.T) {
	cause := errors.New("invalid character")
	err := &ExtractionError{Stream: "media", Selector: "$.media.data[*]", Err: cause}

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsExtraction(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsConfiguration(err))
}

func TestAsFetch(t *testing.T) {
	err := fmt.Errorf("fetching: %w", &FetchError{Type: ErrorTypeRateLimit, Code: 429})

	fetchErr, ok := AsFetch(err)
	assert.True(t, ok)
	assert.Equal(t, ErrorTypeRateLimit, fetchErr.Type)

	_, ok = AsFetch(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		expected  bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeParsing, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.errorType))
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(503))
	assert.True(t, IsRetryableStatusCode(599))
	assert.False(t, IsRetryableStatusCode(400))
	assert.False(t, IsRetryableStatusCode(401))
	assert.False(t, IsRetryableStatusCode(404))
}
