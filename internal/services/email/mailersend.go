// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/config"
	"github.com/mailersend/mailersend-go"
)

const mailerSendTimeout = 10 * time.Second

// MailerSendMailer sends mail through the MailerSend HTTP API.
type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

// NewMailerSendMailer creates a MailerSend mailer.
func NewMailerSendMailer(cfg *config.MailConfig) (*MailerSendMailer, error) {
	if cfg.MailerSendAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.From == "" {
		return nil, ErrMissingFrom
	}
	return &MailerSendMailer{
		client: mailersend.NewMailersend(cfg.MailerSendAPIKey),
		from:   mailersend.From{Name: cfg.FromName, Email: cfg.From},
	}, nil
}

// Send delivers msg. MailerSend answers 422 for recipients it refuses to
// accept; those are reported in the receipt.
func (m *MailerSendMailer) Send(ctx context.Context, msg Message) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, mailerSendTimeout)
	defer cancel()

	recipients := make([]mailersend.Recipient, 0, len(msg.To))
	for _, to := range msg.To {
		recipients = append(recipients, mailersend.Recipient{Email: to})
	}

	out := m.client.Email.NewMessage()
	out.SetFrom(m.from)
	out.SetRecipients(recipients)
	out.SetSubject(msg.Subject)
	out.SetText(msg.Text)
	if strings.TrimSpace(msg.HTML) != "" {
		out.SetHTML(msg.HTML)
	}

	res, err := m.client.Email.Send(ctx, out)
	if res != nil && res.Body != nil {
		defer res.Body.Close()
	}
	if err != nil {
		if res != nil && res.StatusCode == http.StatusUnprocessableEntity {
			return &Receipt{Rejected: msg.To}, nil
		}
		return nil, fmt.Errorf("mailersend: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	return &Receipt{MessageID: res.Header.Get("X-Message-Id")}, nil
}
