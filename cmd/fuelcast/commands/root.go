// Package commands holds the fuelcast command line: the HTTP server, one-off
// action calls and queue helpers.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fuelcast/fuelcast/internal/app"
)

var (
	cfg    *app.Config
	logger *slog.Logger
)

// Execute runs the root command. Without a subcommand the server starts.
func Execute() error {
	root := &cobra.Command{
		Use:           "fuelcast",
		Short:         "Fuel price forecast service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.LoadConfig()
			if err != nil {
				slog.Default().Error("load config", slog.Any("error", err))
				return err
			}
			cfg = loaded
			logger = app.NewLogger(cfg, cmd.Name())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	root.AddCommand(serveCmd(), callCmd(), jobsCmd())
	return root.ExecuteContext(context.Background())
}
