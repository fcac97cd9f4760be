package ui

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/fuelcast/fuelcast/internal/forecast"
	"github.com/fuelcast/fuelcast/internal/shared"
)

// Flash kinds used for toasts.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// MasterController drives the list of points of sale and the action triggers.
type MasterController struct {
	backend Backend
	busy    BusyTracker
	logger  *slog.Logger
}

// NewMasterController constructs the controller. A nil tracker uses an
// in-process one.
func NewMasterController(backend Backend, busy BusyTracker, logger *slog.Logger) *MasterController {
	if busy == nil {
		busy = NewMemoryBusy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MasterController{backend: backend, busy: busy, logger: logger}
}

// List returns the points of sale. Errors are logged and yield an empty list.
func (c *MasterController) List(ctx context.Context) []forecast.PointOfSale {
	items, err := c.backend.ListPointsOfSale(ctx)
	if err != nil {
		c.logger.Error("list points of sale", slog.Any("error", err))
		return nil
	}
	return items
}

// Select returns the detail URL for the selected row.
func (c *MasterController) Select(pos forecast.PointOfSale) (string, error) {
	return NavTo(RouteDetail, map[string]string{ParamPointOfSale: pos.UUID})
}

// Busy reports whether an action is running for the busy key.
func (c *MasterController) Busy(ctx context.Context, key string) bool {
	return c.busy.Busy(ctx, key)
}

// Trigger runs an action with the busy indicator set and returns the toast to
// show. A transport error counts as failure.
func (c *MasterController) Trigger(ctx context.Context, busyKey, action string, tag language.Tag) shared.FlashMessage {
	logger := c.logger.With(slog.String("action", action))
	if err := c.busy.Begin(ctx, busyKey); err != nil {
		logger.Warn("set busy", slog.Any("error", err))
	}
	defer func() {
		if err := c.busy.End(context.WithoutCancel(ctx), busyKey); err != nil {
			logger.Warn("clear busy", slog.Any("error", err))
		}
	}()

	ok, err := c.backend.CallAction(ctx, action)
	if err != nil {
		logger.Error("call action", slog.Any("error", err))
		ok = false
	}
	kind := ToastError
	if ok {
		kind = ToastSuccess
	}
	return shared.FlashMessage{Kind: kind, Message: ActionToast(tag, action, ok)}
}

// TriggerPredict runs Prices_Predict.
func (c *MasterController) TriggerPredict(ctx context.Context, busyKey string, tag language.Tag) shared.FlashMessage {
	return c.Trigger(ctx, busyKey, forecast.ActionPredict, tag)
}

// TriggerTrain runs Model_Train.
func (c *MasterController) TriggerTrain(ctx context.Context, busyKey string, tag language.Tag) shared.FlashMessage {
	return c.Trigger(ctx, busyKey, forecast.ActionTrain, tag)
}
