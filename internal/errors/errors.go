package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const malformedOrdersKey = "malformed_orders"

// Kind clasifica el error según cómo debe reaccionar el pipeline
type Kind string

const (
	KindConfiguration Kind = "configuration" // fatal al arrancar
	KindExternal      Kind = "external"      // Holded, SMTP, catálogo: se reporta por ejecución
	KindDataQuality   Kind = "data_quality"  // una orden mal formada: se salta y se cuenta
	KindPersistence   Kind = "persistence"   // ledger de órdenes procesadas
	KindInternal      Kind = "internal"
)

// AppError representa un error de aplicación con su tipo y contexto
type AppError struct {
	Kind       Kind                   `json:"kind"`
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Internal   error                  `json:"-"` // No se expone al cliente
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"-"` // HTTP status code
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", msg, e.Internal)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewAppError crea un nuevo error de aplicación
func NewAppError(kind Kind, statusCode int, code int, message string, internal error) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		Internal:   internal,
		StatusCode: statusCode,
		Metadata:   make(map[string]interface{}),
		Retryable:  false,
	}
}

// WithDetails agrega detalles adicionales al error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithMetadata agrega metadata al error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithRetryable marca el error como reintentable
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

var (
	ErrConfiguration = func(details string, err error) *AppError {
		return NewAppError(KindConfiguration, http.StatusInternalServerError, 10000, "Invalid configuration", err).
			WithDetails(details)
	}

	// ErrExternalAPI: 5xx y 429 se consideran transitorios
	ErrExternalAPI = func(statusCode int, details string, err error) *AppError {
		return NewAppError(KindExternal, http.StatusBadGateway, 50200, "External API error", err).
			WithDetails(details).
			WithMetadata("external_status_code", statusCode).
			WithRetryable(statusCode >= 500 || statusCode == http.StatusTooManyRequests)
	}

	ErrTransport = func(details string, err error) *AppError {
		return NewAppError(KindExternal, http.StatusServiceUnavailable, 50300, "External service unreachable", err).
			WithDetails(details).
			WithRetryable(true)
	}

	ErrDataQuality = func(details string, err error) *AppError {
		return NewAppError(KindDataQuality, http.StatusUnprocessableEntity, 42200, "Malformed record", err).
			WithDetails(details)
	}

	// ErrMalformedOrders acompaña a un lote válido del que se descartaron count documentos
	ErrMalformedOrders = func(count int) *AppError {
		return ErrDataQuality(fmt.Sprintf("%d malformed order(s) skipped", count), nil).
			WithMetadata(malformedOrdersKey, count)
	}

	ErrPersistence = func(details string, err error) *AppError {
		return NewAppError(KindPersistence, http.StatusInternalServerError, 50010, "Ledger persistence error", err).
			WithDetails(details)
	}

	ErrInternal = func(details string, err error) *AppError {
		return NewAppError(KindInternal, http.StatusInternalServerError, 50000, "Internal error", err).
			WithDetails(details)
	}
)

// IsRetryable verifica si un error es reintentable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// KindOf devuelve el tipo del error, KindInternal si no es un AppError
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MalformedCount devuelve cuántos documentos descartó un ErrMalformedOrders, 0 si err
// es de otro tipo.
func MalformedCount(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Kind != KindDataQuality {
		return 0
	}
	count, _ := appErr.Metadata[malformedOrdersKey].(int)
	return count
}
