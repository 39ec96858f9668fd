package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models/serviceresponse"
)

// ErrQueueFull: ya hay demasiadas ejecuciones esperando.
var ErrQueueFull = errors.New("run queue is full")

// ErrQueueStopped: el worker ya terminó.
var ErrQueueStopped = errors.New("run queue is stopped")

const defaultQueueSize = 8

// Runner ejecuta una comprobación completa
type Runner interface {
	Run(ctx context.Context, referenceTime *time.Time) serviceresponse.WorkflowResult
}

// Request es una ejecución pendiente
type Request struct {
	ReferenceTime *time.Time
	Trigger       string
}

type job struct {
	ctx    context.Context
	req    Request
	result chan serviceresponse.WorkflowResult
}

// RunQueue serializa las ejecuciones con un único worker: dos comprobaciones nunca se
// solapan aunque coincidan cron, intervalo y POST /run.
type RunQueue struct {
	jobs   chan job
	runner Runner
	logger *zap.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

func NewRunQueue(runner Runner, logger *zap.Logger, size int) *RunQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunQueue{
		jobs:   make(chan job, size),
		runner: runner,
		logger: logger.With(zap.String("component", "run_queue")),
	}
}

// Start lanza el worker. Termina cuando ctx se cancela; Wait espera a que acabe la
// ejecución en curso.
func (q *RunQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.worker(ctx)
}

func (q *RunQueue) Wait() {
	q.wg.Wait()
}

// Submit encola una ejecución sin bloquear. El canal devuelto recibe exactamente un
// resultado.
func (q *RunQueue) Submit(ctx context.Context, req Request) (<-chan serviceresponse.WorkflowResult, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}

	j := job{ctx: ctx, req: req, result: make(chan serviceresponse.WorkflowResult, 1)}
	select {
	case q.jobs <- j:
		return j.result, nil
	default:
		q.logger.Warn("run rejected, queue is full", zap.String("trigger", req.Trigger))
		return nil, ErrQueueFull
	}
}

func (q *RunQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	q.logger.Info("run worker started")

	for {
		select {
		case <-ctx.Done():
			q.stop()
			q.logger.Warn("run worker stopped")
			return

		case j := <-q.jobs:
			j.result <- q.execute(j)
		}
	}
}

func (q *RunQueue) execute(j job) serviceresponse.WorkflowResult {
	runID := logging.RunID(j.ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	// una ejecución empezada no se cancela aunque el llamante se vaya
	ctx := logging.WithRunFields(context.WithoutCancel(j.ctx), runID, j.req.Trigger)

	start := time.Now()
	result := q.runner.Run(ctx, j.req.ReferenceTime)
	logging.For(ctx, q.logger).Info("run finished",
		zap.Bool("success", result.Success),
		zap.String("state", result.State),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}

// stop rechaza nuevos envíos y responde a los pendientes con un resultado fallido.
func (q *RunQueue) stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	for {
		select {
		case j := <-q.jobs:
			j.result <- serviceresponse.WorkflowResult{
				Timestamp: time.Now(),
				State:     serviceresponse.StateFailed,
				Errors:    []string{ErrQueueStopped.Error()},
			}
		default:
			return
		}
	}
}
