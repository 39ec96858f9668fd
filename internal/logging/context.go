// internal/logging/context.go
package logging

import (
	"context"

	"github.com/juancollazo-ch/holded-order-monitor/internal/contextkeys"
	"go.uber.org/zap"
)

// FieldsFromContext extrae los campos de logging de una ejecución (run_id, trigger, trace_id)
// del contexto y los devuelve como un slice de zap.Field.
func FieldsFromContext(ctx context.Context) []zap.Field {
	fields := []zap.Field{}
	if ctx == nil {
		return fields
	}
	if id, ok := ctx.Value(contextkeys.RunIDKey).(string); ok && id != "" {
		fields = append(fields, zap.String("run_id", id))
	}
	if trigger, ok := ctx.Value(contextkeys.TriggerKey).(string); ok && trigger != "" {
		fields = append(fields, zap.String("trigger", trigger))
	}
	if trace, ok := ctx.Value(contextkeys.TraceIDKey).(string); ok && trace != "" {
		fields = append(fields, zap.String("trace_id", trace))
	}
	return fields
}

// WithRunFields añade run_id y trigger al contexto si están presentes.
func WithRunFields(ctx context.Context, runID, trigger string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, contextkeys.RunIDKey, runID)
	}
	if trigger != "" {
		ctx = context.WithValue(ctx, contextkeys.TriggerKey, trigger)
	}
	return ctx
}

// WithTraceID guarda el trace id de una petición HTTP.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.TraceIDKey, traceID)
}

// TraceID devuelve el trace id guardado en el contexto, o "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.TraceIDKey).(string)
	return id
}

// For devuelve el logger enriquecido con los campos del contexto.
func For(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	return logger.With(FieldsFromContext(ctx)...)
}

// RunID devuelve el run_id guardado en el contexto, o "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(contextkeys.RunIDKey).(string)
	return id
}
