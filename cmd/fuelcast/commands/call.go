package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fuelcast/fuelcast/internal/app"
	"github.com/fuelcast/fuelcast/internal/forecast"
)

// ActionCaller runs a backend action.
type ActionCaller interface {
	Call(ctx context.Context, action string) bool
}

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "call <" + forecast.ActionPredict + "|" + forecast.ActionTrain + ">",
		Short:     "Run an action synchronously and print its result",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{forecast.ActionPredict, forecast.ActionTrain},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.NewRuntime(cmd.Context(), cfg, logger, "cli")
			if err != nil {
				logger.Error("init runtime", slog.Any("error", err))
				return err
			}
			defer rt.Close()
			return CallAction(cmd.Context(), rt.Service, args[0], cmd.OutOrStdout())
		},
	}
}

// CallAction runs action and writes the action response document. A false
// result is reported as an error so the exit code reflects it.
func CallAction(ctx context.Context, caller ActionCaller, action string, out io.Writer) error {
	if !forecast.IsAction(action) {
		return fmt.Errorf("%w: %s", forecast.ErrUnknownAction, action)
	}
	ok := caller.Call(ctx, action)
	if err := json.NewEncoder(out).Encode(map[string]bool{action: ok}); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s reported failure", action)
	}
	return nil
}
