package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

// WithRetry ejecuta fn hasta attempts veces con backoff exponencial y jitter.
// Un AppError marcado como no reintentable corta los reintentos de inmediato.
func WithRetry(
	ctx context.Context,
	attempts int,
	baseDelay time.Duration,
	fn func(attempt int) error,
) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error

	for i := 1; i <= attempts; i++ {
		// Verificar si el context expiró
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = fn(i)
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		// No hacer sleep en el último intento
		if i == attempts {
			break
		}

		// Backoff exponencial con jitter
		sleep := baseDelay * time.Duration(1<<uint(i-1))
		if baseDelay > 0 {
			sleep += time.Duration(rand.Int63n(int64(baseDelay)))
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

// shouldRetry: los errores sin clasificar se reintentan, los AppError según su flag.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return true
}
