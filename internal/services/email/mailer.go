// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/jobboard/internal/config"
)

var (
	// ErrMissingFrom is returned when no sender address is configured.
	ErrMissingFrom = errors.New("mail from address is required")
	// ErrMissingHost is returned when the smtp provider has no host.
	ErrMissingHost = errors.New("SMTP host is required")
	// ErrMissingAPIKey is returned when the mailersend provider has no key.
	ErrMissingAPIKey = errors.New("mailersend api key is required")
)

// Message is a single outgoing mail with a text and an optional HTML body.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Receipt reports the outcome of a send. Rejected lists the recipients the
// provider refused; a send can succeed for some recipients and not others.
type Receipt struct {
	MessageID string
	Rejected  []string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// NewMailer builds the mailer selected by cfg.Provider.
func NewMailer(cfg *config.MailConfig) (Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPMailer(cfg)
	case "mailersend":
		return NewMailerSendMailer(cfg)
	case "log", "":
		return NewLogMailer(slog.Default()), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
