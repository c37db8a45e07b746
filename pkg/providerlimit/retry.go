package providerlimit

import (
	"context"
	"log/slog"
	"time"
)

// Call invokes fn with the provider rate-limit discipline spec.md §4.3
// requires: wait according to ShouldWait, record the request, and on a
// rate-limit-shaped error wait the extracted duration and retry exactly
// once — a second failure propagates.
func Call(ctx context.Context, l *Limiter, model string, fn func() error) error {
	if wait := l.ShouldWait(model); wait > 0 {
		slog.Info("providerlimit: waiting before request", "model", model, "wait", wait)
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
	l.RecordRequest(model)

	err := fn()
	if err == nil {
		return nil
	}

	wait, retryable := HandleError(err.Error())
	if !retryable {
		return err
	}

	slog.Warn("providerlimit: rate-limit error, retrying once", "model", model, "wait", wait, "error", err)
	if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
		return sleepErr
	}
	l.RecordRequest(model)
	return fn()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
