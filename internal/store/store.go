// Package store mantiene el ledger de órdenes ya notificadas (idempotencia entre ejecuciones).
//
// El ledger es un único JSON que se reescribe completo en cada mutación mediante
// archivo temporal + fsync + rename, así un corte a mitad de escritura nunca deja un
// archivo a medias. Se asume un solo proceso escritor.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

// ledgerFile es el formato en disco
type ledgerFile struct {
	ProcessedOrders map[string]string `json:"processed_orders"`
	LastUpdated     string            `json:"last_updated"`
}

// Stats resume el estado del ledger para el comando status
type Stats struct {
	Count  int        `json:"total_processed_orders"`
	Oldest *time.Time `json:"oldest_record,omitempty"`
	Newest *time.Time `json:"newest_record,omitempty"`
	Path   string     `json:"storage_file"`
	Exists bool       `json:"storage_file_exists"`
}

type ProcessedOrderStore struct {
	mu        sync.RWMutex
	path      string
	clock     clock.Clock
	logger    *zap.Logger
	processed map[string]time.Time
}

// New carga el ledger de path. Si no existe o no se puede leer arranca vacío: es
// preferible arriesgar una notificación duplicada a no arrancar.
func New(path string, clk clock.Clock, logger *zap.Logger) *ProcessedOrderStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ProcessedOrderStore{
		path:      path,
		clock:     clk,
		logger:    logger.With(zap.String("component", "processed_orders")),
		processed: make(map[string]time.Time),
	}
	s.load()
	s.logger.Info("processed orders tracker initialized", zap.Int("existing_records", len(s.processed)))
	return s
}

func (s *ProcessedOrderStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no processed orders file found, starting fresh", zap.String("path", s.path))
			return
		}
		s.logger.Warn("could not read processed orders file, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("processed orders file is corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	invalid := 0
	for id, ts := range file.ProcessedOrders {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			// Se conserva (evita duplicados) pero se poda en la próxima limpieza
			invalid++
			parsed = time.Time{}
		}
		s.processed[id] = parsed
	}
	if invalid > 0 {
		s.logger.Warn("processed orders with unparseable timestamps", zap.Int("count", invalid))
	}
	s.logger.Debug("loaded processed order records", zap.Int("count", len(s.processed)))
}

// save escribe el ledger completo. Debe llamarse con s.mu tomado.
func (s *ProcessedOrderStore) save() error {
	file := ledgerFile{
		ProcessedOrders: make(map[string]string, len(s.processed)),
		LastUpdated:     s.clock.Now().Format(time.RFC3339Nano),
	}
	for id, ts := range s.processed {
		file.ProcessedOrders[id] = ts.Format(time.RFC3339Nano)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return apperrors.ErrPersistence("marshal ledger", err)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		s.logger.Error("could not save processed orders file", zap.String("path", s.path), zap.Error(err))
		return apperrors.ErrPersistence("write "+s.path, err)
	}
	s.logger.Debug("saved processed order records", zap.Int("count", len(s.processed)))
	return nil
}

// IsProcessed indica si la orden ya disparó una notificación.
func (s *ProcessedOrderStore) IsProcessed(orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[orderID]
	return ok
}

// MarkProcessed marca todos los ids con la hora actual y hace una única escritura.
// Si la escritura falla el estado en memoria sigue siendo el válido para este proceso.
func (s *ProcessedOrderStore) MarkProcessed(orderIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	marked := 0
	for _, id := range orderIDs {
		if id == "" {
			continue
		}
		s.processed[id] = now
		marked++
	}
	if marked == 0 {
		return nil
	}

	s.logger.Info("marked orders as processed", zap.Int("count", marked))
	return s.save()
}

// FilterUnprocessed devuelve las órdenes no procesadas. Las órdenes sin id se descartan
// y se cuentan: es un problema de calidad de datos, no un error.
func (s *ProcessedOrderStore) FilterUnprocessed(orders []models.Order) ([]models.Order, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unprocessed := make([]models.Order, 0, len(orders))
	missingID := 0
	alreadyProcessed := 0

	for _, order := range orders {
		if order.ID == "" {
			missingID++
			s.logger.Warn("order found without ID, skipping")
			continue
		}
		if _, ok := s.processed[order.ID]; ok {
			alreadyProcessed++
			s.logger.Debug("skipping already processed order", zap.String("order_id", order.ID))
			continue
		}
		unprocessed = append(unprocessed, order)
	}

	if alreadyProcessed > 0 {
		s.logger.Info("filtered out already processed orders",
			zap.Int("already_processed", alreadyProcessed),
			zap.Int("remaining", len(unprocessed)),
		)
	}
	return unprocessed, missingID
}

// CleanupOld elimina registros más antiguos que now - retentionHours. Sólo escribe si
// eliminó algo.
func (s *ProcessedOrderStore) CleanupOld(retentionHours int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-time.Duration(retentionHours) * time.Hour)
	removed := 0
	for id, ts := range s.processed {
		if ts.Before(cutoff) {
			delete(s.processed, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}

	s.logger.Info("cleaned up old processed order records",
		zap.Int("removed", removed),
		zap.Int("retention_hours", retentionHours),
	)
	return removed, s.save()
}

func (s *ProcessedOrderStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Count: len(s.processed), Path: s.path}
	if _, err := os.Stat(s.path); err == nil {
		stats.Exists = true
	}

	if len(s.processed) == 0 {
		return stats
	}
	times := make([]time.Time, 0, len(s.processed))
	for _, ts := range s.processed {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	oldest, newest := times[0], times[len(times)-1]
	stats.Oldest = &oldest
	stats.Newest = &newest
	return stats
}
