package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"job-matcher-go/internal/metrics"
	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/pkg/httpclient"
)

// GuardConfig defines retry, breaker and rate limiting behavior for one provider.
type GuardConfig struct {
	RetryAttempts    int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	Timeout          time.Duration
	BreakerFailures  uint32
	BreakerOpenFor   time.Duration
	RequestPerMinute int
}

// DefaultGuardConfig returns the settings used when none are configured.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RetryAttempts:   2,
		InitialBackoff:  time.Second,
		MaxBackoff:      10 * time.Second,
		Timeout:         30 * time.Second,
		BreakerFailures: 5,
		BreakerOpenFor:  time.Minute,
	}
}

// Guard wraps a provider with rate limiting, a circuit breaker and retries.
// It is itself a provider, so the registry can hold guarded providers.
type Guard struct {
	provider sources.Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *RateLimiter
	stats    *Stats
	cfg      GuardConfig
	logger   *zap.Logger
}

// NewGuard wraps p. limiter and stats may be shared between guards.
func NewGuard(p sources.Provider, cfg GuardConfig, limiter *RateLimiter, stats *Stats, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	if stats == nil {
		stats = NewStats()
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	name := p.Info().Name
	logger = logger.Named("guard").With(zap.String("provider", name))
	threshold := cfg.BreakerFailures

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Guard{
		provider: p,
		breaker:  breaker,
		limiter:  limiter,
		stats:    stats,
		cfg:      cfg,
		logger:   logger,
	}
}

func (g *Guard) Info() sources.Descriptor {
	return g.provider.Info()
}

// Search runs the wrapped provider's search. Temporary failures are retried
// with exponential backoff; an open breaker fails fast.
func (g *Guard) Search(ctx context.Context, req sources.SearchRequest) ([]models.Candidate, error) {
	info := g.provider.Info()
	rate := g.cfg.RequestPerMinute
	if rate == 0 {
		rate = info.RateLimit
	}
	start := time.Now()

	var listings []models.Candidate
	operation := func() error {
		if err := g.limiter.Wait(ctx, info.Name, rate); err != nil {
			return backoff.Permanent(err)
		}

		result, err := g.breaker.Execute(func() (interface{}, error) {
			callCtx := ctx
			if g.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
				defer cancel()
			}
			return g.provider.Search(callCtx, req)
		})
		if err != nil {
			if ctx.Err() != nil || !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		listings, _ = result.([]models.Candidate)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.InitialBackoff
	policy.MaxInterval = g.cfg.MaxBackoff
	policy.MaxElapsedTime = 0

	var attempts uint64
	if g.cfg.RetryAttempts > 0 {
		attempts = uint64(g.cfg.RetryAttempts)
	}
	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, attempts), ctx),
		func(err error, wait time.Duration) {
			g.logger.Warn("provider search failed, retrying",
				zap.String("query", req.Query),
				zap.Duration("wait", wait),
				zap.Error(err))
		})

	took := time.Since(start)
	g.stats.RecordProviderCall(info.Name, len(listings), err, took)
	metrics.ProviderLatency.WithLabelValues(info.Name).Observe(took.Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.ProviderCalls.WithLabelValues(info.Name, outcome).Inc()
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}

	metrics.ProviderCalls.WithLabelValues(info.Name, "ok").Inc()
	return listings, nil
}

// retryable reports whether another attempt may succeed. Open breakers and
// client errors are final.
func retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}
