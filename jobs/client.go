package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of asynq.Client the job client needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits forecast tasks.
type Client struct {
	client Enqueuer
}

// NewClient connects an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// Enqueue submits a predict or train task on the default queue.
func (c *Client) Enqueue(ctx context.Context, taskType, trigger string) (*asynq.TaskInfo, error) {
	task, err := NewForecastTask(taskType, trigger)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
