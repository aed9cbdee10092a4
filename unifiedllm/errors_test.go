package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rateLimited(after *float64) error {
	return &RateLimitError{ProviderError: ProviderError{
		SDKError:   SDKError{Message: "quota exceeded"},
		Provider:   "gemini",
		StatusCode: 429,
		Retryable:  true,
		RetryAfter: after,
	}}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.False(t, IsRetryable(&AbortError{}))
	assert.False(t, IsRetryable(&ConfigurationError{}))
	assert.True(t, IsRetryable(&NetworkError{}))
	assert.True(t, IsRetryable(&StreamFailure{}))
	assert.True(t, IsRetryable(errors.New("mystery")))
	assert.False(t, IsRetryable(&ProviderError{Retryable: false}))
	assert.True(t, IsRetryable(&ProviderError{Retryable: true}))
	assert.True(t, IsRetryable(rateLimited(nil)))
	assert.True(t, IsRetryable(&ServerError{}))
	assert.False(t, IsRetryable(&AuthenticationError{}))
	assert.False(t, IsRetryable(&ContextLengthError{}))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "RATE_LIMIT", ErrorCode(rateLimited(nil)))
	assert.Equal(t, "AUTHENTICATION", ErrorCode(&AuthenticationError{}))
	assert.Equal(t, "SERVER_ERROR", ErrorCode(&ServerError{}))
	assert.Equal(t, "PROVIDER", ErrorCode(&ProviderError{}))
	assert.Equal(t, "ABORTED", ErrorCode(&AbortError{}))
	assert.Equal(t, "TIMEOUT", ErrorCode(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, "ABORTED", ErrorCode(context.Canceled))
	assert.Equal(t, "UNKNOWN", ErrorCode(errors.New("other")))
}

func TestSDKErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &NetworkError{SDKError: SDKError{Message: "dial failed", Cause: cause}}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dial failed: root cause", err.Error())
}

func TestProviderErrorMessage(t *testing.T) {
	err := rateLimited(nil)
	assert.Equal(t, "[gemini] quota exceeded (status=429, retryable=true)", err.Error())
}
