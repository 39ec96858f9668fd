package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// errRunFailed hace que el proceso termine con código 1 sin repetir el resumen.
var errRunFailed = errors.New("run did not succeed")

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "holded-order-monitor",
		Short:         "Detecta órdenes de venta de Holded con bicicletas Conway y avisa por e-mail o webhook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "archivo .env opcional (el entorno tiene prioridad)")

	cmd.AddCommand(
		newCheckCmd(opts),
		newTestCmd(opts),
		newStatusCmd(opts),
		newScheduleCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}
