package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jhoicas/stockflow/internal/domain"
)

// RetryConfig reintentos acotados ante contención transitoria (espera de lock, conflicto de tx).
type RetryConfig struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig valores por defecto.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 5, BaseDelay: 20 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
}

func (c RetryConfig) backoff() retry.Backoff {
	base := c.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if c.MaxDelay > 0 {
		b = retry.WithCappedDuration(c.MaxDelay, b)
	}
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(c.MaxRetries, b)
}

// RunWithRetry ejecuta op y la reintenta solo si falla con domain.ErrTransient.
// Agotados los reintentos devuelve domain.ErrUnavailable.
func RunWithRetry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		err := op(ctx)
		if errors.Is(err, domain.ErrTransient) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, domain.ErrTransient) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}
