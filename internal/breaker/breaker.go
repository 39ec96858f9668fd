// Package breaker configura los circuit breakers de las dependencias HTTP externas.
package breaker

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

const (
	consecutiveFailures = 5
	openTimeout         = 60 * time.Second
)

// New crea un breaker que abre tras varios fallos transitorios seguidos. Los errores no
// reintentables (4xx) no cuentan como fallo del servicio remoto.
func New(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return !appErr.Retryable
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Translate convierte los errores propios del breaker en un AppError no reintentable;
// el resto se devuelve sin tocar.
func Translate(name string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewAppError(apperrors.KindExternal, http.StatusServiceUnavailable, 50301, "Circuit breaker open", err).
			WithDetails(name)
	}
	return err
}
