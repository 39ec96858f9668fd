// Package service contiene el orquestador de la comprobación: ventana horaria, consulta
// a Holded, deduplicación, filtro por referencias de catálogo, aviso y registro.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
	"github.com/juancollazo-ch/holded-order-monitor/internal/filter"
	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/matcher"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
	"github.com/juancollazo-ch/holded-order-monitor/internal/window"
)

// ErrNoReferences: el catálogo se cargó pero no aportó ninguna referencia.
var ErrNoReferences = errors.New("no bike references loaded from catalog")

type Orchestrator struct {
	cfg       *config.Config
	source    OrderSource
	refSource ReferenceSource
	notifier  Notifier
	ledger    Ledger
	clock     clock.Clock
	logger    *zap.Logger

	refs       *matcher.ReferenceSet
	refsLoaded int
}

// NewOrchestrator carga el catálogo una vez; si falla, el orquestador no se construye
// y se liberan los recursos temporales del catálogo.
func NewOrchestrator(
	ctx context.Context,
	cfg *config.Config,
	src OrderSource,
	refs ReferenceSource,
	n Notifier,
	l Ledger,
	clk clock.Clock,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:       cfg,
		source:    src,
		refSource: refs,
		notifier:  n,
		ledger:    l,
		clock:     clk,
		logger:    logger.With(zap.String("component", "orchestrator")),
	}

	o.logger.Info("initializing workflow orchestrator")
	raw, err := refs.LoadReferences(ctx)
	if err != nil {
		o.logger.Error("failed to initialize workflow components", zap.Error(err))
		return nil, multierr.Append(fmt.Errorf("load bike references: %w", err), o.Close())
	}
	o.refs = matcher.NewReferenceSet(raw)
	o.refsLoaded = len(raw)

	o.logger.Info("all workflow components initialized successfully",
		zap.Int("bike_references", o.refsLoaded),
		zap.Int("reference_set_members", o.refs.Len()),
	)
	return o, nil
}

// run es el estado de una ejecución en curso
type run struct {
	ctx      context.Context
	now      time.Time
	log      *zap.Logger
	result   *serviceresponse.WorkflowResult
	fetched  []models.Order
	pending  []models.Order
	relevant []models.Order
}

// Run ejecuta una comprobación completa. Nunca devuelve error: el resultado describe
// éxito, salto o fallo. referenceTime sustituye a "ahora" (pruebas y --at).
func (o *Orchestrator) Run(ctx context.Context, referenceTime *time.Time) (result serviceresponse.WorkflowResult) {
	now := o.clock.Now()
	if referenceTime != nil {
		now = *referenceTime
	}
	now = window.Localize(now, o.cfg.Location())

	runID := logging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunFields(ctx, runID, "")
	}
	log := logging.For(ctx, o.logger)

	result = serviceresponse.WorkflowResult{
		RunID:                runID,
		Timestamp:            now,
		State:                serviceresponse.StateGateCheck,
		BikeReferencesLoaded: o.refsLoaded,
		Errors:               []string{},
		OrdersWithBikes:      []models.Order{},
	}

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("Unexpected error during workflow execution: %v", rec)
			log.Error("workflow panicked", zap.String("state", result.State), zap.Any("panic", rec))
			result.State = serviceresponse.StateFailed
			result.Success = false
			result.Errors = append(result.Errors, msg)
		}
	}()

	log.Info("starting order check", zap.Time("reference_time", now))

	r := &run{ctx: ctx, now: now, log: log, result: &result}
	stages := []struct {
		state string
		exec  func(*run) stageOutcome
	}{
		{serviceresponse.StateGateCheck, o.gateCheck},
		{serviceresponse.StateFetch, o.housekeeping},
		{serviceresponse.StateFetch, o.fetch},
		{serviceresponse.StateDedupFilter, o.dedupFilter},
		{serviceresponse.StateReferenceFilter, o.referenceFilter},
		{serviceresponse.StateNotify, o.notify},
		{serviceresponse.StateCommit, o.commit},
	}

	for _, stage := range stages {
		result.State = stage.state
		out := stage.exec(r)

		switch out.kind {
		case outcomeContinue:
		case outcomeSkipContinue:
			result.Skipped = true
			result.SkipReason = out.reason
		case outcomeSkip:
			result.Skipped = true
			result.SkipReason = out.reason
			result.State = serviceresponse.StateSkipped
			result.Success = true
			log.Info("check skipped", zap.String("reason", string(out.reason)))
			return result
		case outcomeFail:
			result.Errors = append(result.Errors, out.err.Error())
			log.Error("check failed", zap.String("state", stage.state), zap.Error(out.err))
			result.State = serviceresponse.StateFailed
			result.Success = false
			return result
		}
	}

	result.State = serviceresponse.StateDone
	result.Success = true
	log.Info("check completed successfully",
		zap.Int("total_orders", result.TotalOrdersRetrieved),
		zap.Int("orders_with_bikes", result.FilteredOrdersCount),
		zap.Int("orders_marked_processed", result.OrdersMarkedProcessed),
	)
	return result
}

func (o *Orchestrator) gateCheck(r *run) stageOutcome {
	start, end := o.cfg.Operation.StartHour, o.cfg.Operation.EndHour
	r.result.WithinOperationHours = window.IsOpen(r.now, start, end)
	if !r.result.WithinOperationHours {
		r.log.Info("outside operation hours",
			zap.Int("hour", r.now.Hour()),
			zap.Int("start_hour", start),
			zap.Int("end_hour", end),
		)
		return skip(serviceresponse.SkipOutsideOperationHours)
	}
	return proceed()
}

// housekeeping poda el ledger; nunca bloquea la ejecución.
func (o *Orchestrator) housekeeping(r *run) stageOutcome {
	removed, err := o.ledger.CleanupOld(o.cfg.RetentionHours)
	if err != nil {
		r.log.Warn("cleanup of processed orders failed", zap.Error(err))
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to cleanup processed orders: %v", err))
	} else if removed > 0 {
		r.log.Info("pruned processed order records", zap.Int("removed", removed))
	}
	return proceed()
}

func (o *Orchestrator) fetch(r *run) stageOutcome {
	if o.refs.Len() == 0 {
		return fail(ErrNoReferences)
	}

	start := window.FetchStart(r.now, o.cfg.Location(), o.cfg.Schedule.Hour, o.cfg.Schedule.Minute)
	orders, err := o.source.FetchOrders(r.ctx, start, r.now)
	if err != nil {
		// documentos ilegibles: se cuentan y el lote sigue
		if apperrors.KindOf(err) != apperrors.KindDataQuality {
			return fail(fmt.Errorf("failed to retrieve orders from Holded API: %w", err))
		}
		r.result.MalformedOrders = apperrors.MalformedCount(err)
		r.result.Errors = append(r.result.Errors, err.Error())
		r.log.Warn("skipped malformed orders", zap.Int("count", r.result.MalformedOrders))
	}

	r.fetched = orders
	r.result.TotalOrdersRetrieved = len(orders)
	if len(orders) == 0 {
		return skip(serviceresponse.SkipNoOrdersFound)
	}

	invalidDates, malformedItems := 0, 0
	for _, order := range orders {
		if order.DateInvalid {
			invalidDates++
		}
		malformedItems += order.MalformedItems
	}
	if invalidDates > 0 {
		r.log.Warn("orders with unparseable date", zap.Int("count", invalidDates))
	}
	if malformedItems > 0 {
		r.log.Warn("dropped malformed line items", zap.Int("count", malformedItems))
	}
	r.log.Info("retrieved sales orders", zap.Int("count", len(orders)), zap.Time("since", start))
	return proceed()
}

// dedupFilter: si el filtrado falla se sigue con el lote completo. Un aviso duplicado
// es preferible a perder órdenes.
func (o *Orchestrator) dedupFilter(r *run) stageOutcome {
	kept, missing, err := o.filterUnprocessed(r.fetched)
	if err != nil {
		r.log.Error("dedup filter failed, continuing with all orders", zap.Error(err))
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to filter processed orders: %v", err))
		r.pending = r.fetched
		return proceed()
	}

	r.pending = kept
	r.result.OrdersWithoutID = missing
	r.result.DuplicateOrdersFiltered = len(r.fetched) - len(kept) - missing
	if missing > 0 {
		r.log.Warn("orders without id skipped", zap.Int("count", missing))
	}
	r.log.Info("dedup filter applied",
		zap.Int("already_processed", r.result.DuplicateOrdersFiltered),
		zap.Int("new_orders", len(kept)),
	)

	if len(kept) == 0 {
		return skip(serviceresponse.SkipAllOrdersAlreadyProcessed)
	}
	return proceed()
}

func (o *Orchestrator) filterUnprocessed(orders []models.Order) (kept []models.Order, missing int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic filtering processed orders: %v", rec)
		}
	}()
	kept, missing = o.ledger.FilterUnprocessed(orders)
	return kept, missing, nil
}

func (o *Orchestrator) referenceFilter(r *run) stageOutcome {
	res, err := filter.FilterByReferences(r.pending, o.refs, r.log)
	if err != nil {
		return fail(fmt.Errorf("failed to filter orders: %w", err))
	}

	r.relevant = res.Orders
	r.result.OrdersSkipped = res.Skipped
	r.result.FilteredOrdersCount = len(res.Orders)
	r.result.OrdersWithBikes = res.Orders
	return proceed()
}

func (o *Orchestrator) notify(r *run) stageOutcome {
	if len(r.relevant) == 0 {
		r.log.Info("no bike orders found, no notification needed")
		r.result.EmailSent = true
		return skipAndContinue(serviceresponse.SkipNoBikeOrders)
	}

	sent, err := o.notifier.Notify(r.ctx, r.relevant)
	r.result.EmailSent = sent && err == nil
	if err != nil {
		return fail(fmt.Errorf("failed to send notification: %w", err))
	}
	if !sent {
		return fail(errors.New("notification failed to send"))
	}
	r.log.Info("notification sent", zap.Int("orders", len(r.relevant)))
	return proceed()
}

// commit marca como procesadas todas las órdenes que pasaron la deduplicación, tengan
// bicicletas o no. Un fallo al persistir se anota pero no falla la ejecución.
func (o *Orchestrator) commit(r *run) stageOutcome {
	ids := models.OrderIDs(r.pending)
	if len(ids) == 0 {
		return proceed()
	}

	if err := o.ledger.MarkProcessed(ids); err != nil {
		r.log.Error("failed to persist processed orders", zap.Error(err))
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to persist processed orders: %v", err))
	}
	r.result.OrdersMarkedProcessed = len(ids)
	r.log.Info("marked orders as processed to prevent duplicates", zap.Int("count", len(ids)))
	return proceed()
}

// Close libera los recursos de los colaboradores que los tengan (catálogo remoto).
func (o *Orchestrator) Close() error {
	var errs error
	for _, c := range []interface{}{o.refSource, o.source, o.notifier} {
		if closer, ok := c.(io.Closer); ok {
			errs = multierr.Append(errs, closer.Close())
		}
	}
	return errs
}
