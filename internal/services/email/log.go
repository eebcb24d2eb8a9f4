// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogMailer writes messages to the log instead of sending them. It is meant
// for local development, where the verification link and codes are needed
// without a mail server.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that logs through logger.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg and accepts every recipient.
func (l *LogMailer) Send(ctx context.Context, msg Message) (*Receipt, error) {
	id := uuid.NewString()
	l.logger.InfoContext(ctx, "mail",
		slog.String("message_id", id),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return &Receipt{MessageID: id}, nil
}
