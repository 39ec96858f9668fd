package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/api"
	"github.com/juancollazo-ch/holded-order-monitor/internal/catalog"
	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/notify"
	"github.com/juancollazo-ch/holded-order-monitor/internal/service"
	"github.com/juancollazo-ch/holded-order-monitor/internal/store"
)

// app agrupa las dependencias compartidas por todos los comandos.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	clock  clock.Clock
	ledger *store.ProcessedOrderStore
}

// loadApp lee la configuración e inicializa el logger global. Un error aquí es fatal.
func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	clk := clock.NewSystem(cfg.Location())
	return &app{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		ledger: store.New(cfg.ProcessedOrdersFile, clk, logger),
	}, nil
}

// orchestrator construye el cliente de Holded, el catálogo y el notificador. El
// llamador debe cerrar el orquestador devuelto.
func (a *app) orchestrator(ctx context.Context) (*service.Orchestrator, error) {
	holded, err := api.NewHoldedClient(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return service.NewOrchestrator(ctx, a.cfg, holded, newReferenceSource(a.cfg, a.logger),
		newNotifier(a.cfg, a.clock, a.logger), a.ledger, a.clock, a.logger)
}

func (a *app) sync() {
	_ = a.logger.Sync()
}

// CATALOG_URL tiene prioridad sobre CATALOG_FILE_PATH
func newReferenceSource(cfg *config.Config, logger *zap.Logger) service.ReferenceSource {
	if cfg.Catalog.URL != "" {
		return catalog.NewRemoteSource(cfg.Catalog.URL, cfg.Catalog.Token, cfg.HoldedTimeout(), logger)
	}
	return catalog.NewFileSource(cfg.Catalog.FilePath, logger)
}

func newNotifier(cfg *config.Config, clk clock.Clock, logger *zap.Logger) service.Notifier {
	switch cfg.Notifier {
	case config.NotifierWebhook:
		return notify.NewWebhookNotifier(cfg, clk, logger)
	case config.NotifierBoth:
		return notify.Multi{
			notify.NewEmailNotifier(cfg, clk, logger),
			notify.NewWebhookNotifier(cfg, clk, logger),
		}
	default:
		return notify.NewEmailNotifier(cfg, clk, logger)
	}
}
