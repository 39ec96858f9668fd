package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
)

// WithLogging registra inicio y fin de cada petición con el trace id de Cloud Run
// (X-Cloud-Trace-Context) o uno generado.
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := traceIDFromHeader(r.Header.Get("X-Cloud-Trace-Context"))
		if traceID == "" {
			traceID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
		}

		projectID := os.Getenv("GCP_PROJECT")
		if projectID == "" {
			projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}

		ctx := logging.WithTraceID(r.Context(), traceID)

		logFields := []zap.Field{
			zap.String("httpRequest.requestMethod", r.Method),
			zap.String("httpRequest.requestUrl", r.URL.Path),
			zap.String("httpRequest.remoteIp", r.RemoteAddr),
			zap.String("httpRequest.userAgent", r.UserAgent()),
			zap.String("trace_id", traceID),
		}
		if projectID != "" {
			logFields = append(logFields, zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)))
		}
		zap.L().Info("Request started", logFields...)

		next(w, r.WithContext(ctx))

		duration := time.Since(start)
		completedFields := []zap.Field{
			zap.String("httpRequest.requestMethod", r.Method),
			zap.String("httpRequest.requestUrl", r.URL.Path),
			zap.Int64("httpRequest.latency.milliseconds", duration.Milliseconds()),
			zap.Float64("httpRequest.latency.seconds", duration.Seconds()),
			zap.String("trace_id", traceID),
		}
		zap.L().Info("Request completed", completedFields...)
	}
}

// Formato: TRACE_ID/SPAN_ID;o=TRACE_TRUE
func traceIDFromHeader(header string) string {
	if header == "" {
		return ""
	}
	if slashIdx := strings.IndexByte(header, '/'); slashIdx != -1 {
		return header[:slashIdx]
	}
	return header
}

// NewMux registra las rutas HTTP del monitor.
func NewMux(run *RunHandler, status *StatusHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", Health)
	mux.HandleFunc("/run", WithLogging(run.Run))
	mux.HandleFunc("/status", WithLogging(status.Status))
	return mux
}
