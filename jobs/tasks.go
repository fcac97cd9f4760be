package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fuelcast/fuelcast/internal/forecast"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskForecastPredict runs the price prediction procedure.
	TaskForecastPredict = "forecast:predict"
	// TaskForecastTrain runs the model training procedure.
	TaskForecastTrain = "forecast:train"
)

var taskActions = map[string]string{
	TaskForecastPredict: forecast.ActionPredict,
	TaskForecastTrain:   forecast.ActionTrain,
}

// ActionForTask returns the backend action a task type runs.
func ActionForTask(taskType string) (string, bool) {
	action, ok := taskActions[taskType]
	return action, ok
}

// ForecastPayload records who asked for a run.
type ForecastPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewForecastTask builds a predict or train task.
func NewForecastTask(taskType, trigger string) (*asynq.Task, error) {
	if _, ok := taskActions[taskType]; !ok {
		return nil, fmt.Errorf("jobs: unknown forecast task %q", taskType)
	}
	data, err := json.Marshal(ForecastPayload{Trigger: trigger, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data, asynq.MaxRetry(0), asynq.Timeout(6*time.Hour)), nil
}
