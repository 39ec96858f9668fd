package breaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

func TestBreaker_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	cb := New("test", nil)
	transient := apperrors.ErrTransport("down", errors.New("connection refused"))

	for i := 0; i < consecutiveFailures; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, transient })
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	translated := Translate("test", err)
	assert.ErrorIs(t, translated, gobreaker.ErrOpenState)
	assert.Equal(t, apperrors.KindExternal, apperrors.KindOf(translated))
	assert.False(t, apperrors.IsRetryable(translated))
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	cb := New("test", nil)
	clientErr := apperrors.ErrExternalAPI(401, "unauthorized", nil)

	for i := 0; i < consecutiveFailures*2; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, clientErr })
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestTranslate_PassesThroughOtherErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, Translate("test", err))
	assert.Nil(t, Translate("test", nil))
}
