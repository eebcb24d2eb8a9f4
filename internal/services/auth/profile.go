// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	"codeberg.org/oliverandrich/jobboard/internal/validate"
)

// ProfileUpdate is a validated partial profile change. Nil fields are kept.
type ProfileUpdate struct {
	FirstName     *string
	LastName      *string
	Email         *string
	RecoveryEmail *string
	MobileNumber  *string
	DateOfBirth   *time.Time
}

// UpdateProfile applies a partial update. Changing the email unconfirms the
// account and sends a new verification link before anything is written.
func (s *Service) UpdateProfile(ctx context.Context, userID string, u ProfileUpdate) (user *models.User, err error) {
	defer func() { s.metrics.Observe("update_profile", err) }()

	current, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := repository.UserFields{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         changed(u.Email, current.Email),
		RecoveryEmail: changed(u.RecoveryEmail, current.RecoveryEmail),
		MobileNumber:  changed(u.MobileNumber, current.MobileNumber),
		DateOfBirth:   u.DateOfBirth,
	}

	nextEmail := deref(fields.Email, current.Email)
	nextRecovery := deref(fields.RecoveryEmail, current.RecoveryEmail)
	if strings.EqualFold(nextEmail, nextRecovery) {
		return nil, validate.Field("recoveryEmail", "must differ from email")
	}

	if fields.Email != nil || fields.RecoveryEmail != nil || fields.MobileNumber != nil {
		taken, err := s.repo.IdentityTaken(ctx, userID,
			deref(fields.MobileNumber, ""), deref(fields.Email, ""), deref(fields.RecoveryEmail, ""))
		if err != nil {
			return nil, fmt.Errorf("check identity: %w", err)
		}
		if taken {
			return nil, ErrConflict
		}
	}

	if fields.Email != nil {
		unconfirmed := false
		fields.EmailConfirmed = &unconfirmed

		target := *current
		target.Email = nextEmail
		if fields.FirstName != nil {
			target.FirstName = *fields.FirstName
		}
		if fields.LastName != nil {
			target.LastName = *fields.LastName
		}
		if err := s.sendVerification(ctx, &target); err != nil {
			return nil, err
		}
	}

	if !fields.Empty() {
		if err := s.repo.UpdateUserFields(ctx, userID, fields); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("update user: %w", conflictErr(err))
		}
	}

	user, err = s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user_updated", "user_id", userID, "email_changed", fields.Email != nil)
	s.publish(ctx, events.UserUpdated, events.Event{UserID: userID, Email: user.Email})
	return user, nil
}

// UpdatePassword replaces the password after checking the old one.
func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	defer func() { s.metrics.Observe("update_password", err) }()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, userID, hash); err != nil {
		return userErr(err)
	}

	slog.InfoContext(ctx, "password_changed", "user_id", userID)
	s.publish(ctx, events.UserPasswordChanged, events.Event{UserID: userID, Attrs: map[string]string{"via": "update"}})
	return nil
}

// changed returns next unless it is nil or equal to current.
func changed(next *string, current string) *string {
	if next == nil || *next == current {
		return nil
	}
	return next
}

func deref(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
