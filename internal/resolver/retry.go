package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/signalpot/entitygraph/internal/config"
	"github.com/signalpot/entitygraph/internal/metrics"
	"github.com/signalpot/entitygraph/internal/upstream"
)

// retryPolicy bounds the exponential backoff applied to upstream calls.
// Values come from ResolverConfig so they stay tunable per deployment.
type retryPolicy struct {
	attempts int
	initial  time.Duration
	maxWait  time.Duration
}

func policyFromConfig(cfg config.ResolverConfig) retryPolicy {
	p := retryPolicy{
		attempts: cfg.RetryAttempts,
		initial:  cfg.RetryInitial,
		maxWait:  cfg.RetryMaxWait,
	}
	if p.attempts <= 0 {
		p.attempts = 1
	}
	if p.initial <= 0 {
		p.initial = 250 * time.Millisecond
	}
	if p.maxWait < p.initial {
		p.maxWait = p.initial
	}
	return p
}

// retryUpstream runs op with bounded exponential backoff. A result wrapped in
// upstream.ErrNotFound is permanent and returned immediately; everything else
// is treated as transient until the attempt budget is spent.
func retryUpstream[T any](ctx context.Context, policy retryPolicy, component string, m *metrics.Metrics, op func() (T, error)) (T, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.initial
	exp.MaxInterval = policy.maxWait
	exp.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		if attempt > 1 {
			m.ObserveRetry(component)
		}
		value, err := op()
		if err != nil && errors.Is(err, upstream.ErrNotFound) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(policy.attempts-1)), ctx)
	return backoff.RetryWithData(wrapped, b)
}
