package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
	"github.com/juancollazo-ch/holded-order-monitor/internal/validator"
	"github.com/juancollazo-ch/holded-order-monitor/internal/worker"
)

// tiempo máximo esperando el resultado de una ejecución encolada
const runWaitTimeout = 180 * time.Second

// RunSubmitter encola ejecuciones (worker.RunQueue)
type RunSubmitter interface {
	Submit(ctx context.Context, req worker.Request) (<-chan serviceresponse.WorkflowResult, error)
}

type RunHandler struct {
	queue     RunSubmitter
	validator *validator.RequestValidator
	timeout   time.Duration
}

func NewRunHandler(queue RunSubmitter) *RunHandler {
	return &RunHandler{
		queue:     queue,
		validator: validator.NewRequestValidator(),
		timeout:   runWaitTimeout,
	}
}

// Run atiende POST /run: encola una comprobación y devuelve su resultado.
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := logging.For(r.Context(), zap.L())

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("Invalid JSON", zap.Error(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	referenceTime, err := h.validator.ValidateRunRequest(&req)
	if err != nil {
		log.Error("Request validation failed", zap.Error(err), zap.String("reference_time", req.ReferenceTime))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trigger := req.Trigger
	if trigger == "" {
		trigger = "http"
	}

	ch, err := h.queue.Submit(r.Context(), worker.Request{ReferenceTime: referenceTime, Trigger: trigger})
	if err != nil {
		log.Warn("Run rejected", zap.Error(err))
		status := http.StatusServiceUnavailable
		if errors.Is(err, worker.ErrQueueFull) {
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	select {
	case result := <-ch:
		status := http.StatusOK
		if !result.Success {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, result)
		log.Info("Run completed",
			zap.String("run_id", result.RunID),
			zap.Bool("success", result.Success),
			zap.Bool("skipped", result.Skipped),
			zap.Int("orders_with_bikes", result.FilteredOrdersCount),
		)
	case <-ctx.Done():
		// la ejecución sigue en el worker; sólo se deja de esperar
		log.Warn("Stopped waiting for run result", zap.Error(ctx.Err()))
		http.Error(w, "run still in progress", http.StatusGatewayTimeout)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}
