package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/batasku/periodgate/internal/notify"
	"github.com/batasku/periodgate/internal/period"
)

type periodLister interface {
	List(ctx context.Context, f period.ListFilter) ([]period.AccountingPeriod, int, error)
}

// ReminderScanJob sweeps open periods once a day. Periods approaching their
// end date get a reminder; periods still open past the escalation window
// get an overdue notice.
type ReminderScanJob struct {
	Periods    periodLister
	Config     configLoader
	Mailer     notify.Mailer
	Recipients []string
	Logger     *slog.Logger
	clock      func() time.Time
}

// NewReminderScanJob initialises the scan handler.
func NewReminderScanJob(periods periodLister, config configLoader, mailer notify.Mailer, recipients []string, logger *slog.Logger) *ReminderScanJob {
	return &ReminderScanJob{
		Periods:    periods,
		Config:     config,
		Mailer:     mailer,
		Recipients: recipients,
		Logger:     logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the clock for deterministic tests.
func (j *ReminderScanJob) WithClock(clock func() time.Time) {
	if clock != nil {
		j.clock = clock
	}
}

// Handle executes the scan.
func (j *ReminderScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("reminder scan: handler not configured")
	}
	cfg, err := j.Config.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.EnableEmailNotifications.Bool() || len(j.Recipients) == 0 {
		return nil
	}
	open, _, err := j.Periods.List(ctx, period.ListFilter{Status: string(period.StatusOpen), Limit: 100})
	if err != nil {
		return err
	}
	today := j.clock().Truncate(24 * time.Hour)
	for _, p := range open {
		end, err := period.ParseDate(p.EndDate)
		if err != nil {
			j.Logger.WarnContext(ctx, "period has malformed end date",
				slog.String("period", p.Name), slog.String("end_date", p.EndDate))
			continue
		}
		daysToEnd := int(end.Sub(today).Hours() / 24)
		switch {
		case daysToEnd < 0 && -daysToEnd >= cfg.EscalationDaysAfterEnd && cfg.EscalationDaysAfterEnd > 0:
			j.send(ctx, p, notify.EscalationSubject(p.Name, -daysToEnd))
		case daysToEnd >= 0 && daysToEnd <= cfg.ReminderDaysBeforeEnd:
			j.send(ctx, p, notify.ReminderSubject(p.Name, daysToEnd))
		}
	}
	return nil
}

func (j *ReminderScanJob) send(ctx context.Context, p period.AccountingPeriod, subject string) {
	body := "Period " + p.Name + " (" + p.Company + ", " + p.StartDate + " to " + p.EndDate + ") is still open.\n"
	if err := j.Mailer.Send(ctx, j.Recipients, subject, body); err != nil {
		j.Logger.ErrorContext(ctx, "reminder send failed",
			slog.String("period", p.Name),
			slog.Any("error", err),
		)
	}
}
