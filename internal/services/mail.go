package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/go-gomail/gomail"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/config"
)

type Mailer interface {
	SendOTP(ctx context.Context, to, firstName, otp string, ttl time.Duration) error
}

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
  <h2>Email Verification</h2>
  <p>Hello {{if .FirstName}}{{.FirstName}}{{else}}there{{end}},</p>
  <p>Your verification code is:</p>
  <p style="font-size:32px;font-weight:bold;letter-spacing:8px">{{.OTP}}</p>
  <p>This code expires in {{.Minutes}} minutes.</p>
  <p>If you did not request this code, you can ignore this email.</p>
</div>`))

// SMTPMailer delivers mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendOTP(_ context.Context, to, firstName, otp string, ttl time.Duration) error {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, struct {
		FirstName string
		OTP       string
		Minutes   int
	}{firstName, otp, int(ttl.Minutes())}); err != nil {
		return fmt.Errorf("rendering otp email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Email Verification OTP")
	msg.SetBody("text/html", body.String())

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them. Used when SMTP is not configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOTP(_ context.Context, to, _, otp string, ttl time.Duration) error {
	m.log.Info("otp email (smtp disabled)", zap.String("to", to), zap.String("otp", otp), zap.Duration("ttl", ttl))
	return nil
}
