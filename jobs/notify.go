package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/batasku/periodgate/internal/notify"
	"github.com/batasku/periodgate/internal/period"
)

type configLoader interface {
	Load(ctx context.Context) (period.Config, error)
}

// PeriodNotifyJob sends one lifecycle event email. Delivery honors the
// enable_email_notifications toggle at send time, not enqueue time.
type PeriodNotifyJob struct {
	Config     configLoader
	Mailer     notify.Mailer
	Recipients []string
	Logger     *slog.Logger
}

// NewPeriodNotifyJob initialises the notification handler.
func NewPeriodNotifyJob(config configLoader, mailer notify.Mailer, recipients []string, logger *slog.Logger) *PeriodNotifyJob {
	return &PeriodNotifyJob{Config: config, Mailer: mailer, Recipients: recipients, Logger: logger}
}

// Handle processes TaskPeriodNotify tasks.
func (j *PeriodNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("period notify: handler not configured")
	}
	var event notify.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}
	cfg, err := j.Config.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.EnableEmailNotifications.Bool() {
		return nil
	}
	to := j.recipients(event)
	if len(to) == 0 {
		return nil
	}
	if err := j.Mailer.Send(ctx, to, event.Subject(), event.Body()); err != nil {
		j.Logger.ErrorContext(ctx, "notification send failed",
			slog.String("period", event.PeriodName),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// recipients is the configured distribution list plus the acting user.
func (j *PeriodNotifyJob) recipients(event notify.Event) []string {
	to := make([]string, 0, len(j.Recipients)+1)
	seen := map[string]bool{}
	for _, addr := range append(append([]string{}, j.Recipients...), event.Actor) {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		to = append(to, addr)
	}
	return to
}
