package inference

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"
)

// Limited wraps an Engine with a token bucket so that per-page and
// per-question fan-out queues behind the provider's rate limit instead of
// failing.
type Limited struct {
	inner   Engine
	limiter *rate.Limiter
}

// NewLimited builds a rate-limited view of inner. rps <= 0 disables limiting.
func NewLimited(inner Engine, rps float64, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Limited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (l *Limited) Name() string { return l.inner.Name() }

func (l *Limited) Structured(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.Structured(ctx, req)
}

func (l *Limited) Completion(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.inner.Completion(ctx, req)
}
