package main

import (
	"log/slog"
	"os"

	"github.com/fuelcast/fuelcast/cmd/fuelcast/commands"
	"github.com/fuelcast/fuelcast/internal/app"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
