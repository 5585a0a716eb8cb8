package ninjadb

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

func (c RetryConfig) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.InitialBackoff
	eb.Multiplier = float64(c.BackoffMultiple)
	eb.RandomizationFactor = c.JitterPercent
	eb.MaxInterval = DefaultMaxBackoff
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.MaxRetries)), ctx)
}

// retryOnConflict runs op until it succeeds or fails with anything but
// ErrConflict. It returns the number of retries that were needed.
// When the retries run out the last ErrConflict is returned.
func retryOnConflict(ctx context.Context, cfg RetryConfig, op func() error) (int, error) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, cfg.newBackOff(ctx))
	return attempts - 1, err
}
