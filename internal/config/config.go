// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

var (
	ErrMissingSecret   = errors.New("signing secret is required outside of localhost")
	ErrSharedSecret    = errors.New("email verification and session secrets must differ")
	ErrInvalidOTP      = errors.New("otp length must be between 4 and 10")
	ErrInvalidHasher   = errors.New("password hasher must be bcrypt or argon2id")
	ErrInvalidMailer   = errors.New("mail provider must be smtp, mailersend or log")
	ErrInvalidOTPStore = errors.New("otp store must be sql or redis")
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Tokens   TokenConfig
	Session  SessionConfig
	Mail     MailConfig
	Redis    RedisConfig
	NATS     NATSConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	CORSOrigins []string
	RateLimit   float64 // requests per second per IP on auth routes, 0 disables
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical
	PasswordHasher string // bcrypt, argon2id
	BcryptCost     int
	OTPLength      int
	OTPTTL         time.Duration
	OTPStore       string // sql, redis
	ResetCodeTTL   time.Duration
}

// TokenConfig holds the two independent signing configurations.
type TokenConfig struct { //nolint:govet // fieldalignment not critical
	Issuer               string
	EmailVerificationKey string
	EmailVerificationTTL time.Duration
	SessionKey           string
	SessionTTL           time.Duration
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

type MailConfig struct { //nolint:govet // fieldalignment not critical
	Provider         string // smtp, mailersend, log
	From             string
	FromName         string
	SMTP             SMTPConfig
	MailerSendAPIKey string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

type RedisConfig struct {
	URL string
}

type NATSConfig struct {
	URL string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			CORSOrigins: cmd.StringSlice("cors-origins"),
			RateLimit:   cmd.Float("auth-rate-limit"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			PasswordHasher: cmd.String("password-hasher"),
			BcryptCost:     int(cmd.Int("bcrypt-cost")),
			OTPLength:      int(cmd.Int("otp-length")),
			OTPTTL:         cmd.Duration("otp-ttl"),
			OTPStore:       cmd.String("otp-store"),
			ResetCodeTTL:   cmd.Duration("reset-code-ttl"),
		},
		Tokens: TokenConfig{
			Issuer:               cmd.String("token-issuer"),
			EmailVerificationKey: cmd.String("email-verification-secret"),
			EmailVerificationTTL: cmd.Duration("email-verification-ttl"),
			SessionKey:           cmd.String("session-secret"),
			SessionTTL:           cmd.Duration("session-ttl"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
		Mail: MailConfig{
			Provider: cmd.String("mail-provider"),
			From:     cmd.String("mail-from"),
			FromName: cmd.String("mail-from-name"),
			SMTP: SMTPConfig{
				Host:     cmd.String("smtp-host"),
				Port:     int(cmd.Int("smtp-port")),
				Username: cmd.String("smtp-username"),
				Password: cmd.String("smtp-password"),
				TLS:      cmd.Bool("smtp-tls"),
			},
			MailerSendAPIKey: cmd.String("mailersend-api-key"),
		},
		Redis: RedisConfig{
			URL: cmd.String("redis-url"),
		},
		NATS: NATSConfig{
			URL: cmd.String("nats-url"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate checks cross-field constraints. On localhost, missing signing
// secrets are replaced by random ones so a fresh checkout starts without setup.
func (c *Config) Validate() error {
	if c.Tokens.EmailVerificationKey == "" || c.Tokens.SessionKey == "" {
		if !IsLocalhost(c.Server.Host) {
			return ErrMissingSecret
		}
		slog.Warn("using ephemeral signing secrets, tokens will not survive a restart")
		if c.Tokens.EmailVerificationKey == "" {
			c.Tokens.EmailVerificationKey = randomHex(32)
		}
		if c.Tokens.SessionKey == "" {
			c.Tokens.SessionKey = randomHex(32)
		}
	}
	if c.Tokens.EmailVerificationKey == c.Tokens.SessionKey {
		return ErrSharedSecret
	}

	if c.Auth.OTPLength < 4 || c.Auth.OTPLength > 10 {
		return ErrInvalidOTP
	}

	switch c.Auth.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHasher, c.Auth.PasswordHasher)
	}

	switch c.Auth.OTPStore {
	case "sql", "redis":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOTPStore, c.Auth.OTPStore)
	}

	switch c.Mail.Provider {
	case "smtp", "mailersend", "log":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMailer, c.Mail.Provider)
	}

	return nil
}

// CookieSecure reports whether cookies should carry the Secure flag.
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	// Hide default port in URL
	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL used in emailed links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Value:   []string{"*"},
			Usage:   "Allowed CORS origins",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CORS_ORIGINS"), toml.TOML("server.cors_origins", configFile)),
		},
		&cli.FloatFlag{
			Name:    "auth-rate-limit",
			Value:   5,
			Usage:   "Requests per second per client on login and reset routes (0 disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_RATE_LIMIT"), toml.TOML("server.auth_rate_limit", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/jobboard.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "password-hasher",
			Value:   "bcrypt",
			Usage:   "Password hashing algorithm (bcrypt, argon2id)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_HASHER"), toml.TOML("auth.password_hasher", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   10,
			Usage:   "bcrypt work factor",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SALT_ROUNDS"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-length",
			Value:   6,
			Usage:   "Number of digits in a one-time code",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_LENGTH"), toml.TOML("auth.otp_length", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   30 * time.Minute,
			Usage:   "Lifetime of a one-time code",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_TTL"), toml.TOML("auth.otp_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "otp-store",
			Value:   "sql",
			Usage:   "Backend for one-time codes (sql, redis)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_STORE"), toml.TOML("auth.otp_store", configFile)),
		},
		&cli.DurationFlag{
			Name:    "reset-code-ttl",
			Value:   15 * time.Minute,
			Usage:   "Lifetime of a password reset code",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_CODE_TTL"), toml.TOML("auth.reset_code_ttl", configFile)),
		},
		// Token flags
		&cli.StringFlag{
			Name:    "token-issuer",
			Value:   "jobboard",
			Usage:   "Issuer claim for signed tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_ISSUER"), toml.TOML("tokens.issuer", configFile)),
		},
		&cli.StringFlag{
			Name:    "email-verification-secret",
			Usage:   "Signing key for email verification tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_VERIFICATION_SECRET"), toml.TOML("tokens.email_verification_secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "email-verification-ttl",
			Value:   time.Hour,
			Usage:   "Lifetime of an email verification token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_VERIFICATION_TTL"), toml.TOML("tokens.email_verification_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-secret",
			Usage:   "Signing key for session tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_SECRET"), toml.TOML("tokens.session_secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Value:   24 * time.Hour,
			Usage:   "Lifetime of a session token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_TTL"), toml.TOML("tokens.session_ttl", configFile)),
		},
		// Session cookie flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_session",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
		// Mail flags
		&cli.StringFlag{
			Name:    "mail-provider",
			Value:   "log",
			Usage:   "Mail delivery provider (smtp, mailersend, log)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_PROVIDER"), toml.TOML("mail.provider", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_FROM"), toml.TOML("mail.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "mail-from-name",
			Value:   "Job Board",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_FROM_NAME"), toml.TOML("mail.from_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("mail.smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("mail.smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("mail.smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("mail.smtp.password", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("mail.smtp.tls", configFile)),
		},
		&cli.StringFlag{
			Name:    "mailersend-api-key",
			Usage:   "MailerSend API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAILERSEND_API_KEY"), toml.TOML("mail.mailersend_api_key", configFile)),
		},
		// Backing services
		&cli.StringFlag{
			Name:    "redis-url",
			Value:   "redis://localhost:6379/0",
			Usage:   "Redis URL for the one-time code store",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_URL"), toml.TOML("redis.url", configFile)),
		},
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "NATS URL for account events (empty disables publishing)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("NATS_URL"), toml.TOML("nats.url", configFile)),
		},
	}
}
