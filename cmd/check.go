package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/service"
	"github.com/juancollazo-ch/holded-order-monitor/internal/validator"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ejecuta una comprobación y muestra el resumen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var referenceTime *time.Time
			if at != "" {
				t, err := validator.ParseReferenceTime(at)
				if err != nil {
					return err
				}
				referenceTime = &t
			}

			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.sync()

			ctx := logging.WithRunFields(cmd.Context(), uuid.NewString(), "cli")
			o, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			defer closeOrchestrator(o, a.logger)

			result := o.Run(ctx, referenceTime)
			printSummary(cmd.OutOrStdout(), result)
			if !result.Success {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instante de referencia (RFC3339) en lugar de ahora")
	return cmd
}

func newTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Prueba catálogo, conexión con Holded y notificador",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.sync()

			o, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeOrchestrator(o, a.logger)

			report := o.SelfTest(cmd.Context())
			printSelfTest(cmd.OutOrStdout(), report)
			if !report.OverallSuccess {
				return errRunFailed
			}
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Muestra configuración, estado del catálogo y del registro de órdenes procesadas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.sync()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			o, err := a.orchestrator(cmd.Context())
			if err != nil {
				// sin catálogo no hay orquestador; se muestra lo que se pueda
				_ = enc.Encode(map[string]interface{}{
					"timezone":         a.cfg.Timezone,
					"configuration":    a.cfg.Summary(),
					"processed_orders": a.ledger.Stats(),
					"errors":           []string{err.Error()},
				})
				return err
			}
			defer closeOrchestrator(o, a.logger)

			return enc.Encode(o.Status(a.clock.Now()))
		},
	}
}

func closeOrchestrator(o *service.Orchestrator, logger *zap.Logger) {
	if err := o.Close(); err != nil {
		logger.Warn("failed to release orchestrator resources", zap.Error(err))
	}
}
