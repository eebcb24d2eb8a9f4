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
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
)

// LoginResult is a successful login.
type LoginResult struct {
	Token  string
	User   *models.User
	Claims *token.Claims
}

// Login authenticates by email, recovery email or mobile number, marks the
// user online and opens a session. Unknown identities and wrong passwords
// fail the same way.
func (s *Service) Login(ctx context.Context, identity, mobile, plain string) (result *LoginResult, err error) {
	defer func() { s.metrics.Observe("login", err) }()

	user, err := s.repo.FindUserByIdentity(ctx, identity, mobile)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.hasher.Compare(plain, s.dummyHash)
		slog.InfoContext(ctx, "login_failed", "reason", "unknown_identity")
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Compare(plain, user.PasswordHash) {
		slog.InfoContext(ctx, "login_failed", "user_id", user.ID, "reason", "bad_password")
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.ClaimOnline(ctx, user.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAlreadyOnline
		}
		return nil, fmt.Errorf("claim online: %w", err)
	}

	raw, claims, err := s.sessionTokens.Issue(token.Claims{
		UserID:        user.ID,
		Email:         user.Email,
		RecoveryEmail: user.RecoveryEmail,
		Mobile:        user.MobileNumber,
		Role:          string(user.Role),
	})
	if err != nil {
		s.releaseOnline(ctx, user.ID)
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	sess := &models.Session{
		ID:        claims.ID,
		UserID:    user.ID,
		CreatedAt: now.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		s.releaseOnline(ctx, user.ID)
		return nil, fmt.Errorf("create session: %w", err)
	}

	user.Status = models.StatusOnline
	slog.InfoContext(ctx, "user_login", "user_id", user.ID, "session_id", sess.ID)
	s.publish(ctx, events.UserLoggedIn, events.Event{UserID: user.ID, Email: user.Email})
	return &LoginResult{Token: raw, User: user, Claims: claims}, nil
}

// Logout revokes the session and marks the user offline.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) (err error) {
	defer func() { s.metrics.Observe("logout", err) }()

	if err := s.repo.RevokeSession(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotLoggedIn
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	if err := s.repo.SetUserStatus(ctx, userID, models.StatusOffline); err != nil {
		return userErr(err)
	}

	slog.InfoContext(ctx, "user_logout", "user_id", userID, "session_id", sessionID)
	s.publish(ctx, events.UserLoggedOut, events.Event{UserID: userID})
	return nil
}

// Authenticate resolves a session token to its user. The token must belong
// to a live session of an online user.
func (s *Service) Authenticate(ctx context.Context, raw string) (*models.User, *token.Claims, error) {
	claims, err := s.sessionTokens.Verify(raw)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	sess, err := s.repo.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != claims.UserID || !sess.Active(s.now()) {
		return nil, nil, ErrNotLoggedIn
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsOnline() {
		return nil, nil, ErrNotLoggedIn
	}
	return user, claims, nil
}

// releaseOnline undoes a claim when the session could not be opened.
func (s *Service) releaseOnline(ctx context.Context, userID string) {
	if err := s.repo.SetUserStatus(ctx, userID, models.StatusOffline); err != nil {
		slog.ErrorContext(ctx, "release_online_failed", "user_id", userID, "error", err)
	}
}
