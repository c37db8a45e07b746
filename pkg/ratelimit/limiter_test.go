package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests control "now" and capture what Wait slept for,
// without actually sleeping.
type fakeClock struct {
	t     time.Time
	slept time.Duration
}

func newLimiterWithClock() (*Limiter, *fakeClock) {
	l := New(nil)
	fc := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l.now = func() time.Time { return fc.t }
	l.sleep = func(_ context.Context, d time.Duration) { fc.slept = d }
	return l, fc
}

func TestLimiter_CivicPlusBoundaries(t *testing.T) {
	l, fc := newLimiterWithClock()
	ctx := context.Background()

	l.Wait(ctx, "civicplus") // first call: no prior request, no wait beyond jitter
	require.LessOrEqual(t, fc.slept, civicplusJitterMax)

	// 7s later: should sleep at least 1s (8s min - 7s elapsed) plus jitter.
	fc.t = fc.t.Add(7 * time.Second)
	fc.slept = 0
	l.Wait(ctx, "civicplus")
	assert.GreaterOrEqual(t, fc.slept, 1*time.Second)
	assert.LessOrEqual(t, fc.slept, 1*time.Second+civicplusJitterMax)

	// 9s after THAT: elapsed exceeds the 8s minimum, so only jitter is slept.
	fc.t = fc.t.Add(9 * time.Second)
	fc.slept = 0
	l.Wait(ctx, "civicplus")
	assert.LessOrEqual(t, fc.slept, civicplusJitterMax)
}

func TestLimiter_DefaultSpacingPerVendor(t *testing.T) {
	l, fc := newLimiterWithClock()
	ctx := context.Background()

	l.Wait(ctx, "primegov")
	fc.slept = 0
	l.Wait(ctx, "primegov") // immediate second call: full 3s spacing required
	assert.GreaterOrEqual(t, fc.slept, 3*time.Second)
	assert.LessOrEqual(t, fc.slept, 3*time.Second+defaultJitterMax)
}

func TestLimiter_UnknownVendorFallsBackToDefault(t *testing.T) {
	l, fc := newLimiterWithClock()
	ctx := context.Background()

	l.Wait(ctx, "some-new-vendor")
	fc.slept = 0
	l.Wait(ctx, "some-new-vendor")
	assert.GreaterOrEqual(t, fc.slept, 5*time.Second)
}

func TestLimiter_PerVendorIndependence(t *testing.T) {
	l, fc := newLimiterWithClock()
	ctx := context.Background()

	l.Wait(ctx, "primegov")
	fc.slept = 0
	l.Wait(ctx, "granicus") // different vendor: no prior request recorded
	assert.LessOrEqual(t, fc.slept, defaultJitterMax)
}
