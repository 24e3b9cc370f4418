package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-commerce/storefront/jobs"
)

// Enqueuer submits a named task with its default payload.
type Enqueuer interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector jobs.QueueInspector
}

// NewJobsCLI wires the CLI helpers.
func NewJobsCLI(client Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// OutputOptions selects where and how a command prints.
type OutputOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *OutputOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// TriggerResult describes an enqueued task.
type TriggerResult struct {
	ID    string `json:"id"`
	Task  string `json:"task"`
	Queue string `json:"queue"`
}

// TriggerCommand enqueues a supported task by name and prints the task id.
func (c *JobsCLI) TriggerCommand(ctx context.Context, name string, opts OutputOptions) int {
	opts.defaults()
	if c == nil || c.client == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: client not configured")
		return 1
	}
	name = strings.TrimSpace(name)
	if name == "" {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: task name required (one of %s)\n", strings.Join(jobs.TaskNames(), ", "))
		return 2
	}
	info, err := c.client.Trigger(ctx, name)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
		return 1
	}
	result := TriggerResult{ID: info.ID, Task: info.Type, Queue: info.Queue}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s on %s (id %s)\n", result.Task, result.Queue, result.ID)
	return 0
}

// InspectQueue reports the metrics of the default queue.
func (c *JobsCLI) InspectQueue() (jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueHealth{}, errors.New("jobs cli: inspector not configured")
	}
	stats := jobs.QueueHealth{Queue: jobs.QueueDefault}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return jobs.QueueHealth{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Failed = info.Failed
		stats.Paused = info.Paused
	}
	return stats, nil
}

// StatsCommand prints the default queue depth.
func (c *JobsCLI) StatsCommand(opts OutputOptions) int {
	opts.defaults()
	stats, err := c.InspectQueue()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(opts.Stdout, "queue %s: pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	return 0
}
