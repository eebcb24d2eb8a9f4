// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/config"
	"codeberg.org/oliverandrich/jobboard/internal/database"
	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/i18n"
	"codeberg.org/oliverandrich/jobboard/internal/metrics"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	authsvc "codeberg.org/oliverandrich/jobboard/internal/services/auth"
	"codeberg.org/oliverandrich/jobboard/internal/services/email"
	"codeberg.org/oliverandrich/jobboard/internal/services/otp"
	"codeberg.org/oliverandrich/jobboard/internal/services/password"
	"codeberg.org/oliverandrich/jobboard/internal/services/session"
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
)

// purgeInterval is how often expired one-time codes are deleted from SQL.
const purgeInterval = 10 * time.Minute

// App holds the wired services behind the HTTP layer.
type App struct {
	Repo    *repository.Repository
	Auth    *authsvc.Service
	Cookies *session.Manager
	Metrics *metrics.Metrics
	Events  events.Publisher

	closers []func()
}

// Close releases every backing connection in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// NewApp connects the backing services and builds the auth service from
// cfg. Background work stops when ctx is done.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}
	ready := false
	defer func() {
		if !ready {
			app.Close()
		}
	}()

	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.closers = append(app.closers, func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	})
	app.Repo = repository.New(db)

	hasher, err := password.New(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	emailTokens, err := token.New(token.Config{
		Secret:   cfg.Tokens.EmailVerificationKey,
		TTL:      cfg.Tokens.EmailVerificationTTL,
		Issuer:   cfg.Tokens.Issuer,
		Audience: token.AudienceEmailVerification,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("email verification tokens: %w", err)
	}
	sessionTokens, err := token.New(token.Config{
		Secret:   cfg.Tokens.SessionKey,
		TTL:      cfg.Tokens.SessionTTL,
		Issuer:   cfg.Tokens.Issuer,
		Audience: token.AudienceSession,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("session tokens: %w", err)
	}

	codes, err := app.codeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewMailer(&cfg.Mail)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	app.Events, err = events.New(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	app.closers = append(app.closers, app.Events.Close)

	app.Metrics = metrics.NewDefault()

	app.Cookies, err = session.NewManager(&cfg.Session, cfg.Tokens.SessionTTL, cfg.CookieSecure())
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	app.Auth, err = authsvc.NewService(authsvc.Deps{
		Repo:          app.Repo,
		Hasher:        hasher,
		EmailTokens:   emailTokens,
		SessionTokens: sessionTokens,
		Codes:         codes,
		Mail:          email.NewService(mailer, cfg.Server.BaseURL),
		Events:        app.Events,
		Metrics:       app.Metrics,
	}, authsvc.Config{
		OTPLength:    cfg.Auth.OTPLength,
		OTPTTL:       cfg.Auth.OTPTTL,
		ResetCodeTTL: cfg.Auth.ResetCodeTTL,
	})
	if err != nil {
		return nil, err
	}

	ready = true
	return app, nil
}

// codeStore picks the one-time code backend. Redis expires codes itself;
// the SQL store gets a purge loop.
func (a *App) codeStore(ctx context.Context, cfg *config.Config) (otp.Store, error) {
	if cfg.Auth.OTPStore == "redis" {
		client, err := otp.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() {
			if closeErr := client.Close(); closeErr != nil {
				slog.Error("failed to close redis", "error", closeErr)
			}
		})
		return otp.NewRedisStore(client, nil), nil
	}

	store := otp.NewSQLStore(a.Repo, nil)
	go purgeLoop(ctx, store, purgeInterval)
	return store, nil
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

func purgeLoop(ctx context.Context, p purger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.Purge(ctx)
			if err != nil {
				slog.Error("failed to purge one-time codes", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("purged one-time codes", "count", n)
			}
		}
	}
}
