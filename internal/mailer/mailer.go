// Package mailer implements the outbound notification capability that
// delivers the formatted digest by email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	mail "github.com/wneessen/go-mail"

	"github.com/edgard/digestbot/internal/config"
)

// Subject is the fixed subject line of every digest email.
const Subject = "Your Daily Chat Digest"

// Notifier is the external delivery capability invoked once per successful
// digest run with the fully formatted digest text.
type Notifier interface {
	Send(ctx context.Context, body string) error
}

type smtpNotifier struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewNotifier creates an SMTP-backed Notifier from the mail configuration.
func NewNotifier(cfg config.SMTPConfig, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &smtpNotifier{
		cfg:    cfg,
		logger: logger.With("component", "mailer"),
	}
}

// Send delivers one digest email. The connection is dialed per call so a
// failed delivery leaves no state behind; the error surfaces to the run
// boundary where the retry policy lives.
func (n *smtpNotifier) Send(ctx context.Context, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", n.cfg.From, err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", n.cfg.To, err)
	}
	msg.Subject(Subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTimeout(n.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.ErrorContext(ctx, "Failed to send digest email", "host", n.cfg.Host, "error", err)
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	n.logger.InfoContext(ctx, "Digest email sent successfully", "to", n.cfg.To)
	return nil
}
