package unifiedllm

import (
	"context"
	"errors"
	"fmt"
)

// SDKError is the base error type for all unified LLM errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError is an error reported by an LLM provider.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Provider error kinds.
type (
	AuthenticationError struct{ ProviderError }
	AccessDeniedError   struct{ ProviderError }
	NotFoundError       struct{ ProviderError }
	InvalidRequestError struct{ ProviderError }
	RateLimitError      struct{ ProviderError }
	ServerError         struct{ ProviderError }
	ContentFilterError  struct{ ProviderError }
	ContextLengthError  struct{ ProviderError }
)

// Errors raised by the client itself.
type (
	RequestTimeoutError struct{ SDKError }
	AbortError          struct{ SDKError }
	NetworkError        struct{ SDKError }
	StreamFailure       struct{ SDKError }
	ConfigurationError  struct{ SDKError }
)

// IsRetryable reports whether err is safe to retry. Unknown errors are
// treated as retryable; cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch e := err.(type) {
	case *AuthenticationError, *AccessDeniedError, *NotFoundError,
		*InvalidRequestError, *ContextLengthError, *ContentFilterError,
		*ConfigurationError, *AbortError:
		return false
	case *RateLimitError, *ServerError, *NetworkError, *StreamFailure, *RequestTimeoutError:
		return true
	case *ProviderError:
		return e.Retryable
	default:
		return true
	}
}

// ErrorCode returns a short, stable code for err, suitable for a stream
// error diagnostic.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	switch err.(type) {
	case *AuthenticationError:
		return "AUTHENTICATION"
	case *AccessDeniedError:
		return "ACCESS_DENIED"
	case *NotFoundError:
		return "NOT_FOUND"
	case *InvalidRequestError:
		return "INVALID_REQUEST"
	case *RateLimitError:
		return "RATE_LIMIT"
	case *ServerError:
		return "SERVER_ERROR"
	case *ContentFilterError:
		return "CONTENT_FILTER"
	case *ContextLengthError:
		return "CONTEXT_LENGTH"
	case *RequestTimeoutError:
		return "TIMEOUT"
	case *AbortError:
		return "ABORTED"
	case *NetworkError:
		return "NETWORK"
	case *StreamFailure:
		return "STREAM"
	case *ConfigurationError:
		return "CONFIGURATION"
	case *ProviderError:
		return "PROVIDER"
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "ABORTED"
	}
	return "UNKNOWN"
}
