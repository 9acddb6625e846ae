// Package mailer sends outbound email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
)

// Email is a fully composed outbound message.
type Email struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers a composed email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMTPMailer sends through a single SMTP account. The sender is CC'd on
// every message so there is always a copy in their inbox.
type SMTPMailer struct {
	host        string
	port        int
	senderEmail string
	senderName  string
	password    string
	logger      *slog.Logger
}

type Config struct {
	Host        string
	Port        int
	SenderEmail string
	SenderName  string
	Password    string
	Logger      *slog.Logger
}

func NewSMTP(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.SenderEmail == "" {
		return nil, fmt.Errorf("smtp host and sender email are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{
		host:        cfg.Host,
		port:        cfg.Port,
		senderEmail: cfg.SenderEmail,
		senderName:  cfg.SenderName,
		password:    cfg.Password,
		logger:      cfg.Logger,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.senderName, m.senderEmail); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	if err := msg.Cc(m.senderEmail); err != nil {
		return fmt.Errorf("cc address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.senderEmail),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", strings.Join(email.To, ", "), err)
	}
	m.logger.Info("email sent", "to", strings.Join(email.To, ", "), "subject", email.Subject)
	return nil
}
