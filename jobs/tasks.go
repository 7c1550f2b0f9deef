// Package jobs runs the asynchronous side of the period closing service:
// lifecycle notification delivery and the end-of-period reminder scan.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/batasku/periodgate/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPeriodNotify delivers one lifecycle event email.
	TaskPeriodNotify = "period:notify"
	// TaskReminderScan sweeps open periods for reminders and escalations.
	TaskReminderScan = "period:reminder_scan"
)

// NewPeriodNotifyTask constructs a notification task for one event.
func NewPeriodNotifyTask(event notify.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPeriodNotify, data), nil
}

// NewReminderScanTask constructs the periodic scan task.
func NewReminderScanTask() *asynq.Task {
	return asynq.NewTask(TaskReminderScan, nil)
}

// Client submits jobs to the queue. It satisfies the lifecycle service's
// Notifier contract.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// PeriodEvent enqueues a lifecycle notification. Enqueue failures are not
// surfaced to the caller; the transition has already happened.
func (c *Client) PeriodEvent(ctx context.Context, action, periodName, company, actor string) {
	task, err := NewPeriodNotifyTask(notify.Event{
		Action:     action,
		PeriodName: periodName,
		Company:    company,
		Actor:      actor,
	})
	if err != nil {
		return
	}
	_, _ = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
