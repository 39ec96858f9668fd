// Package filter se queda con las órdenes que mencionan alguna referencia del catálogo.
package filter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/matcher"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

// ErrNoReferences indica que no hay conjunto de referencias; aborta la ejecución.
var ErrNoReferences = errors.New("filter: reference set is nil")

// Result describe el resultado del filtrado
type Result struct {
	Orders  []models.Order // órdenes con coincidencias, anotadas con MatchingReferences
	Skipped int            // órdenes que fallaron al evaluarse
}

// matchOrder se sustituye en tests para simular un fallo en una orden concreta.
var matchOrder = func(order models.Order, refs *matcher.ReferenceSet) []string {
	return matcher.FindMatches(order.SearchableText(), refs)
}

// FilterByReferences evalúa cada orden de forma aislada: un fallo en una orden la
// excluye y se cuenta, el resto del lote sigue.
func FilterByReferences(orders []models.Order, refs *matcher.ReferenceSet, logger *zap.Logger) (Result, error) {
	if refs == nil {
		return Result{}, ErrNoReferences
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	result := Result{Orders: make([]models.Order, 0)}
	for _, order := range orders {
		found, err := evaluate(order, refs)
		if err != nil {
			result.Skipped++
			logger.Warn("error processing order, skipping",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
			continue
		}
		if len(found) == 0 {
			continue
		}

		result.Orders = append(result.Orders, order.WithMatches(found))
		logger.Info("bike order found",
			zap.String("order_id", order.ID),
			zap.String("doc_number", order.DocNumber),
			zap.Strings("references", found),
		)
	}

	logger.Info("reference filter completed",
		zap.Int("orders_evaluated", len(orders)),
		zap.Int("orders_matched", len(result.Orders)),
		zap.Int("orders_skipped", result.Skipped),
	)
	return result, nil
}

func evaluate(order models.Order, refs *matcher.ReferenceSet) (found []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic matching order: %v", r)
		}
	}()
	return matchOrder(order, refs), nil
}
