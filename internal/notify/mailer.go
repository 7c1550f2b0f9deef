// Package notify delivers period lifecycle emails over SMTP.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends a single email.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPMailer is a plain SMTP client suitable for a relay such as Mailpit
// or a local postfix.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer constructs a mailer. Username may be empty for relays that
// accept unauthenticated mail.
func NewSMTPMailer(host string, port int, from, username, password string) *SMTPMailer {
	m := &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

// Send delivers one message to all recipients.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	msg := strings.Builder{}
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	return smtp.SendMail(m.addr, m.auth, m.from, to, []byte(msg.String()))
}

// LogMailer drops messages, used when no SMTP relay is configured.
type LogMailer struct {
	Sink func(to []string, subject string)
}

// Send records the message through the sink without delivering it.
func (m *LogMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if m.Sink != nil {
		m.Sink(to, subject)
	}
	return nil
}
