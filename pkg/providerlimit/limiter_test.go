package providerlimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_RetryAfterMessagePattern(t *testing.T) {
	wait, retryable := HandleError("rate limited: please try again in 7.5 seconds")
	require.True(t, retryable)
	assert.Equal(t, 7500*time.Millisecond, wait)
}

func TestHandleError_WaitPattern(t *testing.T) {
	wait, retryable := HandleError("429 too many requests, wait 12 seconds")
	require.True(t, retryable)
	assert.Equal(t, 12*time.Second, wait)
}

func TestHandleError_StatusDefaults(t *testing.T) {
	wait, retryable := HandleError("received 429 from upstream")
	require.True(t, retryable)
	assert.Equal(t, 120*time.Second, wait)

	wait, retryable = HandleError("529 overload")
	require.True(t, retryable)
	assert.Equal(t, 60*time.Second, wait)

	wait, retryable = HandleError("rate limit exceeded")
	require.True(t, retryable)
	assert.Equal(t, 30*time.Second, wait)
}

func TestHandleError_NonRateLimitIsNotRetryable(t *testing.T) {
	_, retryable := HandleError("invalid request: missing field 'model'")
	assert.False(t, retryable)
}

func TestShouldWait_RollingWindow(t *testing.T) {
	l := New()
	base := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return base }

	for i := 0; i < maxRequestsPerMinute; i++ {
		require.Equal(t, time.Duration(0), l.ShouldWait("claude"))
		l.RecordRequest("claude")
		base = base.Add(minSpacing)
		l.now = func() time.Time { return base }
	}

	// 11th request within the same minute should be forced to wait.
	wait := l.ShouldWait("claude")
	assert.Greater(t, wait, time.Duration(0))
}

func TestShouldWait_HeaderDerivedReset(t *testing.T) {
	l := New()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	reset := now.Add(30 * time.Second)
	l.ParseHeaders("claude", Headers{RequestsRemaining: "3", RequestsReset: FormatReset(reset)})

	wait := l.ShouldWait("claude")
	assert.InDelta(t, 30*time.Second, wait, float64(time.Second))
}

func TestShouldWait_IgnoresResetWhenRemainingHigh(t *testing.T) {
	l := New()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	reset := now.Add(30 * time.Second)
	l.ParseHeaders("claude", Headers{RequestsRemaining: "50", RequestsReset: FormatReset(reset)})

	assert.Equal(t, time.Duration(0), l.ShouldWait("claude"))
}

func TestShouldWait_MinimumSpacing(t *testing.T) {
	l := New()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.RecordRequest("claude")
	wait := l.ShouldWait("claude")
	assert.Equal(t, minSpacing, wait)
}

func TestCall_RetriesExactlyOnceOnRateLimitError(t *testing.T) {
	l := New()
	attempts := 0
	err := Call(context.Background(), l, "claude", func() error {
		attempts++
		if attempts == 1 {
			return errors.New("rate limited: try again in 0 seconds")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestCall_SecondFailurePropagates(t *testing.T) {
	l := New()
	attempts := 0
	sentinel := errors.New("rate limited: try again in 0 seconds")
	err := Call(context.Background(), l, "claude", func() error {
		attempts++
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestCall_NonRateLimitErrorDoesNotRetry(t *testing.T) {
	l := New()
	attempts := 0
	sentinel := errors.New("invalid request")
	err := Call(context.Background(), l, "claude", func() error {
		attempts++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}
