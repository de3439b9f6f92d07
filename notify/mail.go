package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"time"

	"github.com/joy095/property-booking/logger"
	gomail "gopkg.in/gomail.v2"
)

// MailConfig holds the SMTP settings for MailSink.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// mailTemplates are the only events worth an email to the operator.
var mailTemplates = map[string]struct {
	subject string
	body    *template.Template
}{
	EventPaymentExpired: {
		subject: "Payment session expired",
		body: template.Must(template.New("expired").Parse(
			`<p>The payment session <b>{{index .Data "session_id"}}</b> for booking <b>{{index .Data "booking_id"}}</b> expired without payment.</p>
<p>The booking keeps its current status.</p>
<p><small>{{.OccurredAt.Format "2006-01-02 15:04 MST"}}</small></p>`)),
	},
	EventPaymentNeedsReview: {
		subject: "Payment received for a cancelled booking",
		body: template.Must(template.New("review").Parse(
			`<p>Session <b>{{index .Data "session_id"}}</b> was paid but booking <b>{{index .Data "booking_id"}}</b> is cancelled.</p>
<p>The invoice is marked paid and the booking was left cancelled. Refund or reinstate it manually.</p>
<p><small>{{.OccurredAt.Format "2006-01-02 15:04 MST"}}</small></p>`)),
	},
	EventBookingStatusChanged: {
		subject: "Booking status changed",
		body: template.Must(template.New("status").Parse(
			`<p>Booking <b>{{index .Data "booking_id"}}</b> is now <b>{{index .Data "status"}}</b>.</p>
<p>Changed by {{index .Data "actor_id"}}.</p>
<p><small>{{.OccurredAt.Format "2006-01-02 15:04 MST"}}</small></p>`)),
	},
}

// dialer is the part of gomail.Dialer MailSink uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailSink emails the operator about expired sessions and admin decisions.
type MailSink struct {
	cfg    MailConfig
	dialer dialer
}

func NewMailSink(cfg MailConfig) *MailSink {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         cfg.Host,
	}
	return &MailSink{cfg: cfg, dialer: d}
}

func (s *MailSink) Name() string { return "mail" }

// Send ignores events without a template. gomail has no context support,
// so a send that is already past its deadline is skipped.
func (s *MailSink) Send(ctx context.Context, evt Event) error {
	tmpl, ok := mailTemplates[evt.Type]
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, evt); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To)
	m.SetHeader("Subject", tmpl.subject)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", body.String())

	logger.InfoLogger.Infof("Sending %s email to %s via %s:%d", evt.Type, s.cfg.To, s.cfg.Host, s.cfg.Port)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
