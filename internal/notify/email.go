package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"rpicovid/internal/change"
	"rpicovid/internal/history"
	"rpicovid/internal/telemetry"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_email_send = "email.send"
)

type SmtpConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
}

type EmailOptions struct {
	Smtp SmtpConfig
	To   []string
	// FromName is the display name of the sender.
	FromName string
}

// sendFunc matches (*email.Email).Send so tests can capture messages.
type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

// Email sends updates as a plain text email with the chart attached.
type Email struct {
	options EmailOptions
	tel     telemetry.API
	send    sendFunc
}

func NewEmail(options EmailOptions, tel telemetry.API) Email {
	if options.FromName == "" {
		options.FromName = "RPI Covid Dashboard"
	}
	return Email{
		options: options,
		tel:     telemetry.NewScopedAPI("email", tel),
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (e Email) Name() string {
	return "email"
}

func (e Email) body(update Update) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The RPI Covid Dashboard has been updated (%s).\n\n", update.Label)
	for _, delta := range update.Deltas {
		fmt.Fprintf(&b, "%s: %s\n", delta.Label, delta.Value)
	}
	fmt.Fprintf(&b, "Positive Tests (%d days): %s\n", history.WindowDays, update.RollingDelta())
	if update.HasPositivityRate {
		fmt.Fprintf(&b, "Weekly Positivity Rate: %s\n", change.FormatRate(update.PositivityRate))
	}
	if update.Url != "" {
		fmt.Fprintf(&b, "\nDashboard: %s\n", update.Url)
	}
	return b.String()
}

func (e Email) message(update Update) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", e.options.FromName, e.options.Smtp.EmailAddress)
	mail.To = e.options.To
	mail.Subject = fmt.Sprintf("RPI Covid Dashboard: %s", update.Label)
	mail.Text = []byte(e.body(update))

	if len(update.Chart) > 0 {
		_, err := mail.Attach(bytes.NewReader(update.Chart), chartFilename, "image/png")
		if err != nil {
			return nil, fmt.Errorf("attach chart: %w", err)
		}
	}
	return mail, nil
}

func (e Email) Send(ctx context.Context, update Update) error {
	_, span := tracer.Start(ctx, "Email.Send")
	defer span.End()

	if len(e.options.To) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	mail, err := e.message(update)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build email")
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.options.Smtp.Server, e.options.Smtp.Port)
	err = e.send(
		mail,
		addr,
		smtp.PlainAuth("", e.options.Smtp.EmailAddress, e.options.Smtp.Password, e.options.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		e.tel.ReportDebug("smtp server does not support auth, retrying without it", addr)
		err = e.send(mail, addr, nil)
	}
	if err != nil {
		e.tel.ReportBroken(report_email_send, err, addr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
