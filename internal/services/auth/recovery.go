// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	"codeberg.org/oliverandrich/jobboard/internal/services/otp"
	"codeberg.org/oliverandrich/jobboard/internal/validate"
)

// maxCodeAttempts bounds regeneration when a fresh code collides.
const maxCodeAttempts = 5

// ForgetPassword emails a one-time code that VerifyOTP exchanges for a new
// password. A new request replaces the previous code for the address.
func (s *Service) ForgetPassword(ctx context.Context, addr string) (err error) {
	defer func() { s.metrics.Observe("forget_password", err) }()

	user, err := s.getUserByEmail(ctx, addr)
	if err != nil {
		return err
	}

	var code string
	for attempt := 1; ; attempt++ {
		if code, err = otp.Generate(s.cfg.OTPLength); err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		_, err = s.codes.Issue(ctx, user.Email, otp.Hash(code), s.cfg.OTPTTL)
		if err == nil {
			break
		}
		if !errors.Is(err, otp.ErrCollision) || attempt >= maxCodeAttempts {
			return fmt.Errorf("store code: %w", err)
		}
	}

	if err := s.mail.SendOTP(ctx, user.Email, code, s.cfg.OTPTTL); err != nil {
		// Drop the undelivered code.
		if _, cerr := s.codes.Consume(ctx, otp.Hash(code)); cerr != nil && !errors.Is(cerr, otp.ErrNotFound) {
			slog.ErrorContext(ctx, "otp_discard_failed", "user_id", user.ID, "error", cerr)
		}
		slog.WarnContext(ctx, "otp_mail_failed", "user_id", user.ID, "error", err)
		return mailErr(err)
	}

	slog.InfoContext(ctx, "password_reset_requested", "user_id", user.ID, "flow", "otp")
	return nil
}

// VerifyOTP consumes a one-time code and sets the new password of its owner.
// A code works once, and never after it expired.
func (s *Service) VerifyOTP(ctx context.Context, code, newPassword string) (err error) {
	defer func() { s.metrics.Observe("verify_otp", err) }()

	stored, err := s.codes.Consume(ctx, otp.Hash(code))
	if err != nil {
		if errors.Is(err, otp.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("consume code: %w", err)
	}

	user, err := s.getUserByEmail(ctx, stored.Email)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return userErr(err)
	}
	s.revokeSessions(ctx, user.ID)

	slog.InfoContext(ctx, "password_reset", "user_id", user.ID, "flow", "otp")
	s.publish(ctx, events.UserPasswordChanged, events.Event{
		UserID: user.ID, Email: user.Email, Attrs: map[string]string{"via": "otp"},
	})
	return nil
}

// AdvancedForgetPassword stores a six digit reset code on the user and
// emails it. The code must be verified with VerifyResetCode before
// ResetPassword accepts a new password.
func (s *Service) AdvancedForgetPassword(ctx context.Context, addr string) (err error) {
	defer func() { s.metrics.Observe("advanced_forget_password", err) }()

	user, err := s.getUserByEmail(ctx, addr)
	if err != nil {
		return err
	}

	code, hash, err := s.freeResetCode(ctx, user.ID)
	if err != nil {
		return err
	}

	if err := s.repo.SetResetCode(ctx, user.ID, hash, s.now().Add(s.cfg.ResetCodeTTL)); err != nil {
		return userErr(err)
	}

	name := user.FirstName + " " + user.LastName
	if err := s.mail.SendResetCode(ctx, user.Email, name, code, s.cfg.ResetCodeTTL); err != nil {
		if cerr := s.repo.ClearResetCode(ctx, user.ID); cerr != nil {
			slog.ErrorContext(ctx, "reset_code_discard_failed", "user_id", user.ID, "error", cerr)
		}
		slog.WarnContext(ctx, "reset_code_mail_failed", "user_id", user.ID, "error", err)
		return mailErr(err)
	}

	slog.InfoContext(ctx, "password_reset_requested", "user_id", user.ID, "flow", "reset_code")
	return nil
}

// VerifyResetCode marks the pending reset holding code as verified.
func (s *Service) VerifyResetCode(ctx context.Context, code string) (err error) {
	defer func() { s.metrics.Observe("verify_reset_code", err) }()

	user, err := s.repo.GetUserByResetCodeHash(ctx, otp.Hash(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !user.ResetCodeValid(s.now()) {
		return ErrInvalidOrExpired
	}

	if err := s.repo.MarkResetVerified(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("mark verified: %w", err)
	}

	slog.InfoContext(ctx, "reset_code_verified", "user_id", user.ID)
	return nil
}

// ResetPassword sets the new password once the user's reset code has been
// verified and has not yet expired. All reset state is cleared on success.
func (s *Service) ResetPassword(ctx context.Context, addr, newPassword string) (err error) {
	defer func() { s.metrics.Observe("reset_password", err) }()

	user, err := s.getUserByEmail(ctx, addr)
	if err != nil {
		return err
	}
	if !user.ResetVerified {
		return ErrNotVerified
	}
	if !user.ResetCodeValid(s.now()) {
		if cerr := s.repo.ClearResetCode(ctx, user.ID); cerr != nil {
			slog.ErrorContext(ctx, "reset_code_discard_failed", "user_id", user.ID, "error", cerr)
		}
		return ErrInvalidOrExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.CompleteReset(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotVerified
		}
		return fmt.Errorf("complete reset: %w", err)
	}
	s.revokeSessions(ctx, user.ID)

	slog.InfoContext(ctx, "password_reset", "user_id", user.ID, "flow", "reset_code")
	s.publish(ctx, events.UserPasswordChanged, events.Event{
		UserID: user.ID, Email: user.Email, Attrs: map[string]string{"via": "reset_code"},
	})
	return nil
}

// freeResetCode draws reset codes until one is not pending for another user.
func (s *Service) freeResetCode(ctx context.Context, userID string) (code, hash string, err error) {
	for range maxCodeAttempts {
		if code, err = otp.Generate(validate.ResetCodeLength); err != nil {
			return "", "", fmt.Errorf("generate code: %w", err)
		}
		hash = otp.Hash(code)

		holder, lookupErr := s.repo.GetUserByResetCodeHash(ctx, hash)
		if errors.Is(lookupErr, repository.ErrNotFound) || (lookupErr == nil && holder.ID == userID) {
			return code, hash, nil
		}
		if lookupErr != nil {
			return "", "", fmt.Errorf("check reset code: %w", lookupErr)
		}
	}
	return "", "", fmt.Errorf("%w: no free reset code", otp.ErrCollision)
}

// revokeSessions ends every session of the user and marks them offline, so
// a changed password signs out all devices.
func (s *Service) revokeSessions(ctx context.Context, userID string) {
	if err := s.repo.RevokeUserSessions(ctx, userID, s.now()); err != nil {
		slog.ErrorContext(ctx, "revoke_sessions_failed", "user_id", userID, "error", err)
		return
	}
	if err := s.repo.SetUserStatus(ctx, userID, models.StatusOffline); err != nil {
		slog.ErrorContext(ctx, "revoke_sessions_failed", "user_id", userID, "error", err)
	}
}
