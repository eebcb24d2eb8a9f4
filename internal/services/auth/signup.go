// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
	"codeberg.org/oliverandrich/jobboard/internal/validate"
)

// maxHandleAttempts bounds the search for a free handle.
const maxHandleAttempts = 32

// SignupParams is an already validated signup request.
type SignupParams struct {
	FirstName     string
	LastName      string
	Email         string
	RecoveryEmail string
	MobileNumber  string
	Password      string
	DateOfBirth   time.Time
	Role          models.Role
}

// Signup creates an unconfirmed, offline account and emails a verification
// link. Nothing is stored when the mail cannot be delivered.
func (s *Service) Signup(ctx context.Context, p SignupParams) (user *models.User, err error) {
	defer func() { s.metrics.Observe("signup", err) }()

	if strings.EqualFold(p.Email, p.RecoveryEmail) {
		return nil, validate.Field("recoveryEmail", "must differ from email")
	}

	taken, err := s.repo.IdentityTaken(ctx, "", p.MobileNumber, p.Email, p.RecoveryEmail)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if taken {
		return nil, ErrConflict
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	base := handleBase(p.FirstName, p.LastName)
	handle, err := s.uniqueHandle(ctx, base)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		ID:            newID(),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Handle:        handle,
		Email:         p.Email,
		RecoveryEmail: p.RecoveryEmail,
		MobileNumber:  p.MobileNumber,
		DateOfBirth:   p.DateOfBirth.UTC(),
		PasswordHash:  hash,
		Role:          p.Role,
		Status:        models.StatusOffline,
	}

	if err := s.sendVerification(ctx, user); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		err = s.repo.CreateUser(ctx, user)
		if err == nil {
			break
		}
		// A concurrent signup took the handle after the existence check.
		if repository.DuplicateColumn(err) != "handle" || attempt >= maxHandleAttempts {
			return nil, fmt.Errorf("create user: %w", conflictErr(err))
		}
		if user.Handle, err = suffixed(base); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "user_signup", "user_id", user.ID, "handle", user.Handle, "role", user.Role)
	s.publish(ctx, events.UserRegistered, events.Event{
		UserID: user.ID,
		Email:  user.Email,
		Attrs:  map[string]string{"handle": user.Handle, "role": string(user.Role)},
	})
	return user, nil
}

// VerifyEmail confirms the address of the user named by a verification token.
// A token can confirm only once; later uses report ErrNotFound.
func (s *Service) VerifyEmail(ctx context.Context, raw string) (err error) {
	defer func() { s.metrics.Observe("verify_email", err) }()

	claims, err := s.emailTokens.Verify(raw)
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.getUser(ctx, claims.UserID)
	if err != nil {
		return err
	}
	// A link mailed for an earlier address must not confirm the current one.
	if !strings.EqualFold(user.Email, claims.Email) {
		return ErrInvalidToken
	}

	if err := s.repo.ConfirmUserEmail(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("confirm email: %w", err)
	}

	slog.InfoContext(ctx, "email_verified", "user_id", claims.UserID)
	s.publish(ctx, events.UserEmailVerified, events.Event{UserID: claims.UserID})
	return nil
}

// sendVerification mails user.Email a link carrying a token bound to that
// address.
func (s *Service) sendVerification(ctx context.Context, user *models.User) error {
	raw, _, err := s.emailTokens.Issue(token.Claims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	name := user.FirstName + " " + user.LastName
	if err := s.mail.SendVerification(ctx, user.Email, name, raw, s.emailTokens.TTL()); err != nil {
		slog.WarnContext(ctx, "verification_mail_failed", "user_id", user.ID, "error", err)
		return mailErr(err)
	}
	return nil
}

// uniqueHandle returns base if it is free, otherwise base with a random
// four digit suffix.
func (s *Service) uniqueHandle(ctx context.Context, base string) (string, error) {
	candidate := base
	for range maxHandleAttempts {
		exists, err := s.repo.HandleExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check handle: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		if candidate, err = suffixed(base); err != nil {
			return "", err
		}
	}
	return "", ErrHandleSpaceExhausted
}

// handleBase lowercases and joins the name parts without spaces.
func handleBase(first, last string) string {
	return strings.ToLower(strings.ReplaceAll(first+last, " ", ""))
}

func suffixed(base string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("random handle suffix: %w", err)
	}
	return base + strconv.FormatInt(n.Int64()+1000, 10), nil
}
