package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelcast/fuelcast/internal/forecast"
)

type stubCaller struct {
	ok    bool
	calls []string
}

func (s *stubCaller) Call(_ context.Context, action string) bool {
	s.calls = append(s.calls, action)
	return s.ok
}

func TestForecastTaskRunsAction(t *testing.T) {
	caller := &stubCaller{ok: true}
	job := NewForecastJob(caller, nil)

	task, err := NewForecastTask(TaskForecastTrain, "cron")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{forecast.ActionTrain}, caller.calls)

	var payload ForecastPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "cron", payload.Trigger)
	assert.False(t, payload.RequestedAt.IsZero())
}

func TestForecastTaskFailureSkipsRetry(t *testing.T) {
	caller := &stubCaller{ok: false}
	job := NewForecastJob(caller, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskForecastPredict, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, []string{forecast.ActionPredict}, caller.calls)
}

func TestForecastTaskRejectsUnknownType(t *testing.T) {
	job := NewForecastJob(&stubCaller{ok: true}, nil)
	err := job.Handle(context.Background(), asynq.NewTask("forecast:unknown", nil))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	_, err = NewForecastTask("forecast:unknown", "http")
	assert.Error(t, err)
}

func TestForecastTaskMalformedPayload(t *testing.T) {
	caller := &stubCaller{ok: true}
	job := NewForecastJob(caller, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskForecastPredict, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, caller.calls)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

func TestHealthReportsQueue(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Active: 1}}, nil, nil)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":1,"failed":0}`, rec.Body.String())
}

func TestHealthQueueUnavailable(t *testing.T) {
	h := NewHandler(stubInspector{err: errors.New("redis down")}, nil, nil)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnqueueForecastTask(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	h := NewHandler(nil, &Client{client: enqueuer}, nil)
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/train", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.tasks, 1)
	assert.Equal(t, TaskForecastTrain, enqueuer.tasks[0].Type())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/refund", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
