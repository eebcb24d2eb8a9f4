// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies signed, time-bounded claim tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audiences separate the two token purposes. A token minted for one audience
// never verifies for the other.
const (
	AudienceEmailVerification = "email-verification"
	AudienceSession           = "session"
)

var (
	// ErrInvalid is returned for any token that fails verification.
	ErrInvalid = errors.New("invalid token")
	// ErrNoSecret is returned by New when the secret is empty.
	ErrNoSecret = errors.New("token secret is required")
)

// Claims is the payload of a token. Email verification tokens carry UserID
// and the address being confirmed; session tokens also snapshot the other
// contact fields and role.
type Claims struct {
	UserID        string `json:"userId"`
	Email         string `json:"email,omitempty"`
	RecoveryEmail string `json:"recoveryEmail,omitempty"`
	Mobile        string `json:"mobileNumber,omitempty"`
	Role          string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config configures one token purpose.
type Config struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
}

// Service signs and verifies HS256 tokens for a single audience.
type Service struct {
	key      []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// New creates a token service. now defaults to time.Now.
func New(cfg Config, now func() time.Time) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		key:      []byte(cfg.Secret),
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      now,
	}, nil
}

// TTL returns the validity window of issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs claims. It sets the registered claims and assigns a token ID
// when claims.ID is empty. The stamped claims are returned alongside.
func (s *Service) Issue(claims Claims) (string, *Claims, error) {
	now := s.now()
	claims.Issuer = s.issuer
	claims.Subject = claims.UserID
	claims.Audience = jwt.ClaimStrings{s.audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, &claims, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
