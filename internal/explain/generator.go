package explain

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/muniheat/dhcore/internal/errs"
)

// TextGenerator is satisfied by any external model client capable of
// turning a rendered prompt into candidate text. Implementations are
// expected to honor ctx cancellation.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator wraps a TextGenerator with a circuit breaker and a pacing
// rate limiter, matching the breaker shape the teacher uses for its own
// external data providers (consecutive-failure and error-rate trip
// conditions) rather than hand-rolled retry logic.
type Generator struct {
	inner   TextGenerator
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGenerator builds a breaker-and-limiter-wrapped generator. timeout
// bounds each call (§4.15, §5: no core operation blocks on a network
// socket beyond a configured timeout); ratePerSec paces requests to the
// external service.
func NewGenerator(inner TextGenerator, timeout time.Duration, ratePerSec float64) *Generator {
	st := gobreaker.Settings{
		Name:     "explain-generator",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Generator{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		timeout: timeout,
	}
}

// Generate calls the wrapped model at deterministic temperature settings
// (the caller's TextGenerator is responsible for fixing temperature),
// respecting the pacing limiter and the circuit breaker, and wrapping any
// failure in errs.ErrExternalServiceUnavailable so callers can uniformly
// fall back to the deterministic template.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.inner == nil {
		return "", fmt.Errorf("%w: no generator configured", errs.ErrExternalServiceUnavailable)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", errs.ErrExternalServiceUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Generate(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrExternalServiceUnavailable, err)
	}
	return result.(string), nil
}
