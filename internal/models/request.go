package models

// RunRequest representa el body de POST /run
type RunRequest struct {
	// Instante de referencia opcional (RFC3339) para repetir una ventana concreta
	ReferenceTime string `json:"reference_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Trigger       string `json:"trigger,omitempty" validate:"omitempty,oneof=manual http cron interval"`
}
