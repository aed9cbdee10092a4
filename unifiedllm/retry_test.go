package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2,
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 5*time.Second, p.Delay(3))

	p.Multiplier = 0
	assert.Equal(t, time.Second, p.Delay(4))
}

func TestRetryPolicyDelayWithJitter(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: true}
	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retries []int
	policy := fastPolicy(3)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		retries = append(retries, attempt)
	}

	got, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ServerError{}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetryNonRetryableError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, &AuthenticationError{}
	})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	want := errors.New("flaky")
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 3, calls)
}

func TestRetryRateLimitBeyondMaxDelay(t *testing.T) {
	after := 120.0
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, rateLimited(&after)
	})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsWrappedRateLimit(t *testing.T) {
	after := 0.0625
	calls := 0
	var delays []time.Duration
	policy := fastPolicy(2)
	policy.MaxDelay = time.Second
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		delays = append(delays, delay)
	}

	_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("open stream: %w", rateLimited(&after))
	})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 3, calls)
	want := 62500 * time.Microsecond
	assert.Equal(t, []time.Duration{want, want}, delays)
}

func TestRetryWrappedRateLimitBeyondMaxDelay(t *testing.T) {
	after := 120.0
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("open stream: %w", rateLimited(&after))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	calls := 0
	_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &ServerError{}
	})
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.True(t, p.Jitter)
}
