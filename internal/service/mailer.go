package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/tix-api/internal/config"
	"github.com/spec-kit/tix-api/internal/domain"
)

// Mailer delivers transactional mail. Implementations may be a real SMTP
// bridge or the logging stub used in development and tests.
type Mailer interface {
	ResetPasswordInstructions(ctx context.Context, role domain.ActorType, name, email, token string) error
	InvitationInstructions(ctx context.Context, name, email, token string) error
	ClosedTicketsExport(ctx context.Context, name, email, fileName, csvData string) error
	OpenTicketsDigest(ctx context.Context, name, email string, tickets []domain.Ticket) error
}

// logMailer writes each delivery to the log instead of sending it. The
// emailed links are still built for real so misconfigured portal URLs
// show up in development.
type logMailer struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewLogMailer builds the logging mailer.
func NewLogMailer(cfg config.NotificationConfig, logger *zap.Logger) Mailer {
	return &logMailer{cfg: cfg, logger: logger}
}

func (m *logMailer) ResetPasswordInstructions(ctx context.Context, role domain.ActorType, name, email, token string) error {
	base := m.cfg.CustomerPortalURL
	if role == domain.ActorTypeAgent {
		base = m.cfg.AgentPortalURL
	}
	m.deliver(email, "Reset password instructions",
		zap.String("link", fmt.Sprintf("%s/reset-password?token=%s", base, token)))
	return nil
}

func (m *logMailer) InvitationInstructions(ctx context.Context, name, email, token string) error {
	m.deliver(email, "You've been invited to join Tix",
		zap.String("link", fmt.Sprintf("%s/accept-invite?token=%s", m.cfg.AgentPortalURL, token)))
	return nil
}

func (m *logMailer) ClosedTicketsExport(ctx context.Context, name, email, fileName, csvData string) error {
	m.deliver(email, "Your closed tickets export is ready",
		zap.String("attachment", fileName),
		zap.Int("attachment_bytes", len(csvData)))
	return nil
}

func (m *logMailer) OpenTicketsDigest(ctx context.Context, name, email string, tickets []domain.Ticket) error {
	noun := "tickets"
	if len(tickets) == 1 {
		noun = "ticket"
	}
	m.deliver(email, fmt.Sprintf("Daily Reminder: You have %d open %s", len(tickets), noun),
		zap.Int("open_tickets", len(tickets)))
	return nil
}

func (m *logMailer) deliver(to, subject string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("from", m.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
	}, fields...)
	m.logger.Info("mail delivered (stub)", fields...)
}
