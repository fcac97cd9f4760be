package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// ActionCaller runs a named backend action and reports success.
type ActionCaller interface {
	Call(ctx context.Context, action string) bool
}

// ForecastJob runs the prediction and training procedures from the queue.
type ForecastJob struct {
	Service ActionCaller
	Logger  *slog.Logger
}

// NewForecastJob wires dependencies for the forecast handlers.
func NewForecastJob(service ActionCaller, logger *slog.Logger) *ForecastJob {
	return &ForecastJob{Service: service, Logger: logger}
}

// Handle processes forecast:predict and forecast:train tasks. A failed run is
// final and skips retries; procedure metrics are recorded by the runner.
func (j *ForecastJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("forecast job: handler not configured")
	}
	action, ok := ActionForTask(t.Type())
	if !ok {
		return fmt.Errorf("forecast job: unsupported task %q: %w", t.Type(), asynq.SkipRetry)
	}
	var payload ForecastPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	logger := j.logger().With(slog.String("task", t.Type()), slog.String("action", action), slog.String("trigger", payload.Trigger))
	logger.Info("starting forecast task")
	if !j.Service.Call(ctx, action) {
		logger.Error("forecast task failed")
		return fmt.Errorf("forecast job: %s reported failure: %w", action, asynq.SkipRetry)
	}
	logger.Info("completed forecast task")
	return nil
}

func (j *ForecastJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
