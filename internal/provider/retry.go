package provider

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/Cyclone1070/agentgate/internal/tool"
)

const maxRetryDelay = 30 * time.Second

// retrying decorates a Provider with retries for ProviderErrors marked Retryable.
type retrying struct {
	next      Provider
	attempts  int
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps p so that retryable failures are retried up to attempts
// times in total. RetryAfter hints take precedence over exponential backoff.
func WithRetry(p Provider, attempts int, baseDelay time.Duration) Provider {
	if attempts <= 1 {
		return p
	}
	return &retrying{
		next:      p,
		attempts:  attempts,
		baseDelay: baseDelay,
		sleep:     sleepWithContext,
	}
}

func (r *retrying) Name() string {
	return r.next.Name()
}

func (r *retrying) Generate(ctx context.Context, messages []Message, opts Options, tools []tool.Declaration) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		resp, err := r.next.Generate(ctx, messages, opts, tools)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !IsRetryable(err) {
			return resp, err
		}
		if attempt == r.attempts-1 {
			break
		}

		delay := r.delay(attempt)
		if after := GetRetryAfter(err); after != nil {
			delay = *after
		}
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// delay returns the backoff for attempt n (0-indexed) with ±30% jitter.
func (r *retrying) delay(attempt int) time.Duration {
	d := r.baseDelay
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	if d <= 0 {
		return 0
	}
	spread := int64(d) * 30 / 100
	if spread == 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(2*spread)-spread)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
