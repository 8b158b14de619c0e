// Package notify sends the run summary somewhere a user will see it after an
// unattended run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"coursepilot/internal/components/assert"
	"coursepilot/internal/components/telemetry"

	"github.com/jordan-wright/email"
)

const report_email_send = "email.send"

type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error {
	return nil
}

type EmailConfig struct {
	Server   string
	Port     int
	Address  string
	Password string
	To       []string
}

func (c EmailConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", c.Server, port)
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func send(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

// Email sends notifications as plain text mail over smtp.
type Email struct {
	config EmailConfig
	send   sendFunc
	tel    telemetry.API
}

func NewEmail(config EmailConfig, tel telemetry.API) Email {
	assert.NotNil(tel)
	return Email{
		config: config,
		send:   send,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

func (e Email) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("coursepilot <%s>", e.config.Address)
	mail.To = e.config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := e.config.addr()
	err := e.send(mail, addr, smtp.PlainAuth("", e.config.Address, e.config.Password, e.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = e.send(mail, addr, nil)
	}
	if err != nil {
		e.tel.ReportBroken(report_email_send, err, "addr", addr)
		return err
	}
	e.tel.ReportDebug("summary mailed", "to", strings.Join(e.config.To, ", "))
	return nil
}
