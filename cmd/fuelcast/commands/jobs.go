package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/fuelcast/fuelcast/internal/app"
	"github.com/fuelcast/fuelcast/jobs"
)

// Enqueuer submits tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector reads queue state.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for the forecast tasks.
type JobsCLI struct {
	client    Enqueuer
	inspector Inspector
}

// NewJobsCLI builds the helpers over an enqueuer and an inspector.
func NewJobsCLI(client Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Trigger enqueues predict or train.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.NewForecastTask("forecast:"+name, "cli")
	if err != nil {
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Failed    int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Failed = info.Failed
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// PrintStats writes the queue summary in a fixed text form.
func PrintStats(w io.Writer, stats QueueStats, scheduled []*asynq.TaskInfo) {
	_, _ = fmt.Fprintf(w, "queue=%s pending=%d active=%d scheduled=%d failed=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Failed)
	for _, task := range scheduled {
		_, _ = fmt.Fprintf(w, "  %s %s next=%s\n", task.ID, task.Type, task.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Enqueue and inspect forecast tasks",
	}

	open := func() (*JobsCLI, func(), error) {
		opts, err := app.RedisOpts(cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		client := asynq.NewClient(opts)
		inspector := asynq.NewInspector(opts)
		closer := func() {
			_ = client.Close()
			_ = inspector.Close()
		}
		return NewJobsCLI(client, inspector), closer, nil
	}

	trigger := &cobra.Command{
		Use:       "trigger <predict|train>",
		Short:     "Enqueue a forecast task",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"predict", "train"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, closer, err := open()
			if err != nil {
				return err
			}
			defer closer()
			info, err := cli.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s\n", info.Type, info.ID)
			return nil
		},
	}

	var size int
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue state and scheduled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, closer, err := open()
			if err != nil {
				return err
			}
			defer closer()
			summary, err := cli.InspectQueue()
			if err != nil {
				return err
			}
			scheduled, err := cli.ListScheduled(size)
			if err != nil {
				return err
			}
			PrintStats(cmd.OutOrStdout(), summary, scheduled)
			return nil
		},
	}
	stats.Flags().IntVar(&size, "limit", 10, "number of scheduled tasks to list")

	cmd.AddCommand(trigger, stats)
	return cmd
}
