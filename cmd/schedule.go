package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	"github.com/juancollazo-ch/holded-order-monitor/internal/handlers"
	"github.com/juancollazo-ch/holded-order-monitor/internal/service"
	"github.com/juancollazo-ch/holded-order-monitor/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Comprobación diaria (y periódica opcional) con la superficie HTTP activa",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), opts, true)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sólo la superficie HTTP (/health, /run, /status)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), opts, false)
		},
	}
}

// runDaemon arranca la cola de ejecuciones, el servidor HTTP y, si withCron, el
// planificador. Termina con SIGINT/SIGTERM.
func runDaemon(parent context.Context, opts *rootOptions, withCron bool) error {
	a, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, err := a.orchestrator(ctx)
	if err != nil {
		a.logger.Error("Failed to start orchestrator", zap.Error(err))
		return err
	}
	defer closeOrchestrator(o, a.logger)

	queue := worker.NewRunQueue(o, a.logger, 0)
	queue.Start(ctx)
	defer func() {
		stop()
		queue.Wait()
	}()

	if withCron {
		scheduler, err := newScheduler(a.cfg, queue, a.logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			<-scheduler.Stop().Done()
			a.logger.Info("Scheduler stopped")
		}()
	}

	return serveUntilDone(ctx, newHTTPServer(a, o, queue), a.logger)
}

func newHTTPServer(a *app, o *service.Orchestrator, queue *worker.RunQueue) *http.Server {
	mux := handlers.NewMux(handlers.NewRunHandler(queue), handlers.NewStatusHandler(o, a.clock))
	return &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 200 * time.Second, // /run espera el resultado hasta 180s
		IdleTimeout:  120 * time.Second,
	}
}

// serveUntilDone atiende peticiones hasta que ctx se cancela y después hace un
// apagado ordenado.
func serveUntilDone(ctx context.Context, server *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
			return err
		}
		return nil
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("Server exited")
	return nil
}

// newScheduler programa la comprobación diaria y, si CHECK_INTERVAL_MINUTES > 0, las
// comprobaciones frecuentes. Los disparos sólo encolan; la cola serializa.
func newScheduler(cfg *config.Config, queue *worker.RunQueue, logger *zap.Logger) (*cron.Cron, error) {
	cronLog := cronLogger{logger: logger.With(zap.String("component", "scheduler")).Sugar()}
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)

	for _, e := range scheduleEntries(cfg) {
		if _, err := c.AddFunc(e.spec, enqueue(queue, e.trigger, logger)); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", e.spec, err)
		}
		logger.Info("Check scheduled",
			zap.String("spec", e.spec),
			zap.String("trigger", e.trigger),
			zap.String("timezone", cfg.Timezone),
		)
	}
	return c, nil
}

type scheduleEntry struct {
	spec    string
	trigger string
}

func scheduleEntries(cfg *config.Config) []scheduleEntry {
	entries := []scheduleEntry{
		{spec: fmt.Sprintf("%d %d * * *", cfg.Schedule.Minute, cfg.Schedule.Hour), trigger: "cron"},
	}
	if cfg.CheckIntervalMinutes > 0 {
		entries = append(entries, scheduleEntry{
			spec:    fmt.Sprintf("@every %dm", cfg.CheckIntervalMinutes),
			trigger: "interval",
		})
	}
	return entries
}

// enqueue no espera el resultado: la cola lo registra al terminar.
func enqueue(queue *worker.RunQueue, trigger string, logger *zap.Logger) func() {
	return func() {
		if _, err := queue.Submit(context.Background(), worker.Request{Trigger: trigger}); err != nil {
			logger.Warn("Scheduled check not enqueued", zap.String("trigger", trigger), zap.Error(err))
		}
	}
}

// cronLogger adapta zap a cron.Logger
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
