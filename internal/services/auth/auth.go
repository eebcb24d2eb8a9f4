// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the account state machine: signup and email
// confirmation, login sessions, profile and password changes, and the two
// password reset flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/metrics"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	"codeberg.org/oliverandrich/jobboard/internal/services/email"
	"codeberg.org/oliverandrich/jobboard/internal/services/otp"
	"codeberg.org/oliverandrich/jobboard/internal/services/password"
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
	"github.com/google/uuid"
)

// Config holds the tunables of the reset flows. Zero values fall back to
// six digit codes, a thirty minute OTP and a fifteen minute reset code.
type Config struct {
	OTPLength    int
	OTPTTL       time.Duration
	ResetCodeTTL time.Duration
}

// Deps are the collaborators of the service. Events, Metrics and Now are
// optional.
type Deps struct {
	Repo          *repository.Repository
	Hasher        password.Hasher
	EmailTokens   *token.Service
	SessionTokens *token.Service
	Codes         otp.Store
	Mail          *email.Service
	Events        events.Publisher
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

type Service struct {
	repo          *repository.Repository
	hasher        password.Hasher
	emailTokens   *token.Service
	sessionTokens *token.Service
	codes         otp.Store
	mail          *email.Service
	events        events.Publisher
	metrics       *metrics.Metrics
	now           func() time.Time
	cfg           Config

	// dummyHash is compared against when no user matches a login, so both
	// failure paths cost one hash comparison.
	dummyHash string
}

func NewService(deps Deps, cfg Config) (*Service, error) {
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.OTPLength == 0 {
		cfg.OTPLength = 6
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 30 * time.Minute
	}
	if cfg.ResetCodeTTL == 0 {
		cfg.ResetCodeTTL = 15 * time.Minute
	}
	dummy, err := deps.Hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{
		repo:          deps.Repo,
		hasher:        deps.Hasher,
		emailTokens:   deps.EmailTokens,
		sessionTokens: deps.SessionTokens,
		codes:         deps.Codes,
		mail:          deps.Mail,
		events:        deps.Events,
		metrics:       deps.Metrics,
		now:           deps.Now,
		cfg:           cfg,
		dummyHash:     dummy,
	}, nil
}

// GetProfile returns the account of the signed in user.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, userID)
}

// GetUser returns another user's account.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, userID)
}

// DeleteAccount removes the user and everything they own in one transaction.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.Observe("delete_account", err) }()

	result, err := s.repo.DeleteUserCascade(ctx, userID)
	if err != nil {
		return userErr(err)
	}

	slog.InfoContext(ctx, "user_deleted",
		"user_id", userID,
		"companies", result.Companies,
		"jobs", result.Jobs,
		"applications", result.Applications,
		"sessions", result.Sessions,
	)
	s.publish(ctx, events.UserDeleted, events.Event{UserID: userID})
	return nil
}

func (s *Service) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, userErr(err)
	}
	return user, nil
}

func (s *Service) getUserByEmail(ctx context.Context, addr string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, addr)
	if err != nil {
		return nil, userErr(err)
	}
	return user, nil
}

// userErr maps a missing row to ErrNotFound and wraps everything else.
func userErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("load user: %w", err)
}

// conflictErr maps unique violations on contact columns to ErrConflict.
func conflictErr(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %s", ErrConflict, repository.DuplicateColumn(err))
	}
	return err
}

func newID() string {
	return uuid.NewString()
}

func mailErr(err error) error {
	return fmt.Errorf("%w: %w", ErrMailDelivery, err)
}

// publish sends an event. Delivery failures are logged, never returned.
func (s *Service) publish(ctx context.Context, subject string, event events.Event) {
	event.At = s.now().UTC()
	if err := s.events.Publish(ctx, subject, event); err != nil {
		slog.WarnContext(ctx, "event_publish_failed", "subject", subject, "error", err)
	}
}
