package scoring

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

// RateLimitedSource spaces out calls to a quota-bound source. A call that
// cannot get a token before its deadline fails as transient.
type RateLimitedSource struct {
	source  Source
	limiter *rate.Limiter
}

// NewRateLimitedSource allows requestsPerMinute calls with a burst of the
// same size. A non-positive rate disables limiting.
func NewRateLimitedSource(source Source, requestsPerMinute int) Source {
	if requestsPerMinute <= 0 {
		return source
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimitedSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Every(every), requestsPerMinute),
	}
}

func (r *RateLimitedSource) Name() string { return r.source.Name() }

func (r *RateLimitedSource) Score(ctx context.Context, fp normalizer.Fingerprint) (Partial, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Partial{}, Transient(fmt.Errorf("rate limit wait cancelled: %w", err))
	}
	return r.source.Score(ctx, fp)
}
