// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/jobboard/internal/config"
	"github.com/wneessen/go-mail"
)

// SMTPMailer sends mail through an SMTP relay using go-mail.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	from string
	name string
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(cfg *config.MailConfig) (*SMTPMailer, error) {
	if cfg.SMTP.Host == "" {
		return nil, ErrMissingHost
	}
	if cfg.From == "" {
		return nil, ErrMissingFrom
	}
	return &SMTPMailer{cfg: cfg.SMTP, from: cfg.From, name: cfg.FromName}, nil
}

// Send delivers msg. A refused RCPT TO is reported in the receipt, every
// other failure is returned as an error.
func (s *SMTPMailer) Send(ctx context.Context, m Message) (*Receipt, error) {
	msg := mail.NewMsg()

	if s.name != "" {
		if err := msg.FromFormat(s.name, s.from); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}

	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}

	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && sendErr.Reason == mail.ErrSMTPRcptTo {
			return &Receipt{Rejected: m.To}, nil
		}
		return nil, fmt.Errorf("sending email: %w", err)
	}

	return &Receipt{MessageID: msg.GetMessageID()}, nil
}

func (s *SMTPMailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS on 465, STARTTLS elsewhere
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
