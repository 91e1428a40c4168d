// Package email sends quotations to customers over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/ashureev/erp-assistant/internal/erp"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("email service is not configured: set EMAIL_USER and EMAIL_PASSWORD")

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// Mailer sends e-mails through one SMTP server.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
	send   func(...*gomail.Message) error
	logger *slog.Logger
}

// New creates a mailer. Without credentials every send fails with ErrNotConfigured.
func New(cfg Config, logger *slog.Logger) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	m := &Mailer{cfg: cfg, logger: logger}
	if m.Enabled() {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
		m.send = m.dialer.DialAndSend
		logger.Info("Email service initialized", "host", cfg.Host, "port", cfg.Port)
	} else {
		logger.Warn("Email service disabled, EMAIL_USER or EMAIL_PASSWORD not configured")
	}
	return m
}

// Enabled reports whether credentials are configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.User != "" && m.cfg.Password != ""
}

// Verify opens and closes an authenticated SMTP connection.
func (m *Mailer) Verify(ctx context.Context) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	return runWithContext(ctx, func() error {
		conn, err := m.dialer.Dial()
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		return conn.Close()
	})
}

// SendQuotation e-mails q to the given address and returns the Message-ID.
// pdf is attached when not empty.
func (m *Mailer) SendQuotation(ctx context.Context, q *erp.Quotation, to string, pdf []byte) (string, error) {
	if !m.Enabled() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		return "", errors.New("customer email is required")
	}

	msg, id, err := m.BuildQuotation(q, to, pdf)
	if err != nil {
		return "", err
	}

	if err := runWithContext(ctx, func() error { return m.send(msg) }); err != nil {
		m.logger.Error("Failed to send email", "to", to, "quotation", q.Name, "error", err)
		return "", fmt.Errorf("send quotation %s: %w", q.Name, err)
	}

	m.logger.Info("Email sent successfully", "to", to, "quotation", q.Name, "message_id", id)
	return id, nil
}

// BuildQuotation renders the quotation e-mail without sending it.
func (m *Mailer) BuildQuotation(q *erp.Quotation, to string, pdf []byte) (*gomail.Message, string, error) {
	view := newQuotationView(q, m.cfg.FromName)

	var html, text strings.Builder
	if err := quotationHTML.Execute(&html, view); err != nil {
		return nil, "", fmt.Errorf("render html: %w", err)
	}
	if err := quotationText.Execute(&text, view); err != nil {
		return nil, "", fmt.Errorf("render text: %w", err)
	}

	domain := "erp-assistant.local"
	if _, host, ok := strings.Cut(m.cfg.From, "@"); ok && host != "" {
		domain = host
	}
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.From, m.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Devis %s - %s", q.Name, m.cfg.FromName))
	msg.SetHeader("Message-ID", id)
	msg.SetBody("text/plain", strings.TrimSpace(text.String()))
	msg.AddAlternative("text/html", html.String())

	if len(pdf) > 0 {
		msg.Attach(q.Name+".pdf",
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
		)
	}
	return msg, id, nil
}

func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
