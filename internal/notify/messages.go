package notify

import "fmt"

// Event is one period lifecycle action worth telling people about.
type Event struct {
	Action     string `json:"action"`
	PeriodName string `json:"period_name"`
	Company    string `json:"company"`
	Actor      string `json:"actor"`
}

// Subject renders the email subject line for an event.
func (e Event) Subject() string {
	return fmt.Sprintf("[%s] Accounting period %s: %s", e.Company, e.PeriodName, e.Action)
}

// Body renders the plain-text email body for an event.
func (e Event) Body() string {
	return fmt.Sprintf(
		"Accounting period %q (%s) changed state.\n\nAction: %s\nBy: %s\n\nThis is an automated message from the period closing service.\n",
		e.PeriodName, e.Company, e.Action, e.Actor,
	)
}

// ReminderSubject is the subject for a period approaching its end date.
func ReminderSubject(periodName string, daysLeft int) string {
	if daysLeft <= 0 {
		return fmt.Sprintf("Accounting period %s ends today", periodName)
	}
	return fmt.Sprintf("Accounting period %s ends in %d day(s)", periodName, daysLeft)
}

// EscalationSubject is the subject for an overdue open period.
func EscalationSubject(periodName string, daysOverdue int) string {
	return fmt.Sprintf("OVERDUE: accounting period %s still open %d day(s) past its end date", periodName, daysOverdue)
}
