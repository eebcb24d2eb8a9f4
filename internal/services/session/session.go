// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session carries the session token in a signed, optionally
// encrypted cookie for browser clients.
package session

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/config"
	"github.com/gorilla/securecookie"
)

const keyLength = 32

// Manager encodes session tokens into cookies.
type Manager struct {
	codec  *securecookie.SecureCookie
	name   string
	maxAge time.Duration
	secure bool
}

// NewManager creates a cookie manager. Keys are hex encoded 32-byte values;
// an empty hash key is replaced by a random one, so cookies do not survive a
// restart. The block key is optional and enables encryption.
func NewManager(cfg *config.SessionConfig, maxAge time.Duration, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "hash")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		slog.Warn("no session hash key configured, generating a random one")
		hashKey = securecookie.GenerateRandomKey(keyLength)
	}

	blockKey, err := decodeKey(cfg.BlockKey, "block")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge.Seconds()))

	return &Manager{
		codec:  codec,
		name:   cfg.CookieName,
		maxAge: maxAge,
		secure: secure,
	}, nil
}

func decodeKey(value, kind string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s key: %w", kind, err)
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("invalid session %s key: must be %d bytes, got %d", kind, keyLength, len(key))
	}
	return key, nil
}

// Name returns the cookie name.
func (m *Manager) Name() string {
	return m.name
}

// Create returns a cookie holding token.
func (m *Manager) Create(token string) (*http.Cookie, error) {
	encoded, err := m.codec.Encode(m.name, token)
	if err != nil {
		return nil, fmt.Errorf("encode session cookie: %w", err)
	}
	return &http.Cookie{
		Name:     m.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Parse returns the token in the request cookie, or "" when the cookie is
// missing, tampered with or older than the configured max age.
func (m *Manager) Parse(r *http.Request) string {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return ""
	}
	var token string
	if err := m.codec.Decode(m.name, cookie.Value, &token); err != nil {
		return ""
	}
	return token
}

// Clear returns a cookie that removes the session cookie.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
