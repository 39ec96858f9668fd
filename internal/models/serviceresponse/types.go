// internal/models/serviceresponse/types.go
package serviceresponse

import (
	"time"

	"github.com/juancollazo-ch/holded-order-monitor/internal/catalog"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/store"
)

// SkipReason es el conjunto cerrado de motivos por los que una ejecución termina sin notificar.
type SkipReason string

const (
	SkipOutsideOperationHours     SkipReason = "outside_operation_hours"
	SkipNoOrdersFound             SkipReason = "no_orders_found"
	SkipAllOrdersAlreadyProcessed SkipReason = "all_orders_already_processed"
	SkipNoBikeOrders              SkipReason = "no_bike_orders"
)

// WorkflowResult resume una ejecución del orquestador. Se crea nuevo en cada ejecución.
type WorkflowResult struct {
	RunID                   string         `json:"run_id"`
	Timestamp               time.Time      `json:"timestamp"`
	State                   string         `json:"state"`
	Success                 bool           `json:"success"`
	Skipped                 bool           `json:"skipped"`
	SkipReason              SkipReason     `json:"skip_reason,omitempty"`
	WithinOperationHours    bool           `json:"within_operation_hours"`
	BikeReferencesLoaded    int            `json:"bike_references_loaded"`
	TotalOrdersRetrieved    int            `json:"total_orders_retrieved"`
	DuplicateOrdersFiltered int            `json:"duplicate_orders_filtered"`
	OrdersWithoutID         int            `json:"orders_without_id"`
	MalformedOrders         int            `json:"malformed_orders"`
	OrdersSkipped           int            `json:"orders_skipped"`
	FilteredOrdersCount     int            `json:"filtered_orders_count"`
	EmailSent               bool           `json:"email_sent"`
	OrdersMarkedProcessed   int            `json:"orders_marked_processed"`
	Errors                  []string       `json:"errors"`
	OrdersWithBikes         []models.Order `json:"orders_with_bikes"`
}

// ComponentCheck es el resultado de probar un colaborador
type ComponentCheck struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error,omitempty"`
	Stats   map[string]interface{} `json:"stats,omitempty"`
}

// SelfTestReport agrupa las pruebas de catálogo, Holded y notificador
type SelfTestReport struct {
	Catalog        ComponentCheck `json:"catalog"`
	OrderSource    ComponentCheck `json:"order_source"`
	Notifier       ComponentCheck `json:"notifier"`
	OverallSuccess bool           `json:"overall_success"`
}

// ScheduleInfo describe cuándo se ejecuta la comprobación programada
type ScheduleInfo struct {
	Hour                 int    `json:"hour"`
	Minute               int    `json:"minute"`
	Description          string `json:"next_run_description"`
	CheckIntervalMinutes int    `json:"check_interval_minutes,omitempty"`
}

type OperationHoursInfo struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// SystemStatus es la respuesta de GET /status y del comando status
type SystemStatus struct {
	Timestamp            time.Time              `json:"timestamp"`
	Timezone             string                 `json:"timezone"`
	Schedule             ScheduleInfo           `json:"schedule"`
	OperationHours       OperationHoursInfo     `json:"operation_hours"`
	CurrentlyOperational bool                   `json:"currently_operational"`
	NextOpening          time.Time              `json:"next_opening"`
	Catalog              catalog.Stats          `json:"csv_stats"`
	Ledger               store.Stats            `json:"processed_orders"`
	Configuration        map[string]interface{} `json:"configuration"`
	Errors               []string               `json:"errors"`
}

// Estados por los que pasa una ejecución
const (
	StateGateCheck       = "GATE_CHECK"
	StateFetch           = "FETCH"
	StateDedupFilter     = "DEDUP_FILTER"
	StateReferenceFilter = "REFERENCE_FILTER"
	StateNotify          = "NOTIFY"
	StateCommit          = "COMMIT"
	StateDone            = "DONE"
	StateSkipped         = "SKIPPED"
	StateFailed          = "FAILED"
)
