package service

import (
	"context"
	"errors"
	"time"

	"github.com/juancollazo-ch/holded-order-monitor/internal/catalog"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/store"
)

type fakeSource struct {
	orders    []models.Order
	err       error
	panicWith interface{}
	testErr   error
	calls     int
	lastStart time.Time
	lastEnd   time.Time
}

func (f *fakeSource) FetchOrders(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	f.calls++
	f.lastStart, f.lastEnd = start, end
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.orders, f.err
}

func (f *fakeSource) TestConnection(ctx context.Context) error {
	return f.testErr
}

type fakeReferences struct {
	refs     []string
	err      error
	stats    catalog.Stats
	closed   int
	closeErr error
}

func (f *fakeReferences) LoadReferences(ctx context.Context) ([]string, error) {
	return f.refs, f.err
}

func (f *fakeReferences) Stats() catalog.Stats {
	return f.stats
}

func (f *fakeReferences) Close() error {
	f.closed++
	return f.closeErr
}

type fakeNotifier struct {
	ok       bool
	err      error
	testErr  error
	calls    int
	received [][]models.Order
}

func (f *fakeNotifier) Notify(ctx context.Context, orders []models.Order) (bool, error) {
	f.calls++
	f.received = append(f.received, orders)
	return f.ok, f.err
}

func (f *fakeNotifier) Test(ctx context.Context) error {
	return f.testErr
}

// fakeLedger envuelve un store real y permite inyectar fallos
type fakeLedger struct {
	*store.ProcessedOrderStore
	panicOnFilter bool
	markErr       error
	cleanupCalls  int
}

func (f *fakeLedger) FilterUnprocessed(orders []models.Order) ([]models.Order, int) {
	if f.panicOnFilter {
		panic(errors.New("ledger index corrupted"))
	}
	return f.ProcessedOrderStore.FilterUnprocessed(orders)
}

func (f *fakeLedger) MarkProcessed(ids []string) error {
	if err := f.ProcessedOrderStore.MarkProcessed(ids); err != nil {
		return err
	}
	return f.markErr
}

func (f *fakeLedger) CleanupOld(retentionHours int) (int, error) {
	f.cleanupCalls++
	return f.ProcessedOrderStore.CleanupOld(retentionHours)
}
