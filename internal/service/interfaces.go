package service

import (
	"context"
	"time"

	"github.com/juancollazo-ch/holded-order-monitor/internal/catalog"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/store"
)

// OrderSource entrega las órdenes de venta creadas en [start, end].
type OrderSource interface {
	FetchOrders(ctx context.Context, start, end time.Time) ([]models.Order, error)
	TestConnection(ctx context.Context) error
}

// ReferenceSource carga las referencias del catálogo.
type ReferenceSource interface {
	LoadReferences(ctx context.Context) ([]string, error)
	Stats() catalog.Stats
}

// Notifier devuelve true si el aviso se entregó (o se suprimió a propósito en dry-run).
type Notifier interface {
	Notify(ctx context.Context, orders []models.Order) (bool, error)
	Test(ctx context.Context) error
}

// Ledger es el registro de órdenes ya notificadas.
type Ledger interface {
	IsProcessed(id string) bool
	MarkProcessed(ids []string) error
	FilterUnprocessed(orders []models.Order) ([]models.Order, int)
	CleanupOld(retentionHours int) (int, error)
	Stats() store.Stats
}
