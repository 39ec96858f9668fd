// Package notify entrega el aviso de órdenes con bicicletas por e-mail, webhook o ambos.
package notify

import (
	"context"

	"go.uber.org/multierr"

	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

// Notifier es el contrato común de los canales de aviso. Notify devuelve false si el
// aviso no se entregó; en ese caso las órdenes no se marcan como procesadas.
type Notifier interface {
	Notify(ctx context.Context, orders []models.Order) (bool, error)
	Test(ctx context.Context) error
}

// Multi envía por varios canales en orden. Sólo se considera entregado si todos
// entregan.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, orders []models.Order) (bool, error) {
	delivered := true
	var errs error
	for _, n := range m {
		ok, err := n.Notify(ctx, orders)
		if !ok {
			delivered = false
		}
		errs = multierr.Append(errs, err)
	}
	return delivered, errs
}

func (m Multi) Test(ctx context.Context) error {
	var errs error
	for _, n := range m {
		errs = multierr.Append(errs, n.Test(ctx))
	}
	return errs
}
