package handlers

import "net/http"

const (
	ServiceName = "holded-order-monitor"
	Version     = "1.0.0"
)

// HEALTH CHECK
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: Version,
	})
}
