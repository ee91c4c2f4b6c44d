package retry

import (
	"context"
	"fmt"
	"time"

	appErr "tichu-service/pkg/errors"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// Do runs op until it succeeds or fails with an error that is not ErrStoreUnavailable.
// When attempts run out the last store error is returned unchanged.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.MaxAttempts <= 1 {
		return op()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil || appErr.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

// Store runs one store interaction under timeout and retries it per p. Any error that is not
// a domain sentinel is reported as ErrStoreUnavailable.
func Store(ctx context.Context, p Policy, timeout time.Duration, op func(ctx context.Context) error) error {
	return Do(ctx, p, func() error {
		opCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := op(opCtx)
		if err == nil || appErr.IsDomain(err) {
			return err
		}
		return fmt.Errorf("%w: %v", appErr.ErrStoreUnavailable, err)
	})
}
