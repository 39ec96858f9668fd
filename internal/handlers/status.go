package handlers

import (
	"net/http"
	"time"

	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
)

type StatusProvider interface {
	Status(now time.Time) serviceresponse.SystemStatus
}

type StatusHandler struct {
	provider StatusProvider
	clock    clock.Clock
}

func NewStatusHandler(provider StatusProvider, clk clock.Clock) *StatusHandler {
	return &StatusHandler{provider: provider, clock: clk}
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.Status(h.clock.Now()))
}
