// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email composes and delivers the account mails.
package email

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/i18n"
)

// ErrRejected is returned when the provider refuses the recipient.
var ErrRejected = errors.New("recipient rejected")

// Service builds localized account mails and hands them to a Mailer.
type Service struct {
	mailer  Mailer
	baseURL string
}

// NewService creates a new email service. Links point at baseURL.
func NewService(mailer Mailer, baseURL string) *Service {
	return &Service{
		mailer:  mailer,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// VerificationLink returns the link that confirms an email address.
func (s *Service) VerificationLink(token string) string {
	return fmt.Sprintf("%s/user/verify-email/%s", s.baseURL, token)
}

// SendVerification mails the confirmation link for a new or changed address.
func (s *Service) SendVerification(ctx context.Context, to, name, token string, validFor time.Duration) error {
	data := map[string]any{"Name": name, "Link": s.VerificationLink(token)}
	hours := roundUp(validFor, time.Hour)

	return s.send(ctx, Message{
		To:      []string{to},
		Subject: i18n.T(ctx, "verify_email_subject"),
		Text:    i18n.TPlural(ctx, "verify_email_body", hours, data),
		HTML:    i18n.TPlural(ctx, "verify_email_html", hours, data),
	})
}

// SendOTP mails a one-time code for the short password reset flow.
func (s *Service) SendOTP(ctx context.Context, to, code string, validFor time.Duration) error {
	return s.send(ctx, Message{
		To:      []string{to},
		Subject: i18n.T(ctx, "otp_subject"),
		Text:    i18n.TPlural(ctx, "otp_body", roundUp(validFor, time.Minute), map[string]any{"Code": code}),
	})
}

// SendResetCode mails the six digit code of the advanced reset flow.
func (s *Service) SendResetCode(ctx context.Context, to, name, code string, validFor time.Duration) error {
	data := map[string]any{"Name": name, "Code": code}
	return s.send(ctx, Message{
		To:      []string{to},
		Subject: i18n.T(ctx, "reset_code_subject"),
		Text:    i18n.TPlural(ctx, "reset_code_body", roundUp(validFor, time.Minute), data),
	})
}

// send fails with ErrRejected when any recipient was refused.
func (s *Service) send(ctx context.Context, msg Message) error {
	receipt, err := s.mailer.Send(ctx, msg)
	if err != nil {
		return err
	}
	for _, to := range msg.To {
		if slices.Contains(receipt.Rejected, to) {
			return fmt.Errorf("%w: %s", ErrRejected, to)
		}
	}
	return nil
}

// roundUp expresses d in whole units, never less than one.
func roundUp(d, unit time.Duration) int {
	return max(1, int(math.Ceil(float64(d)/float64(unit))))
}
