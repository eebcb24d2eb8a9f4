// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp generates one-time codes and stores their hashes with a TTL.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
)

var (
	// ErrNotFound is returned when no unexpired code matches.
	ErrNotFound = errors.New("one-time code not found or expired")
	// ErrCollision is returned when the hash is already held by a live code.
	ErrCollision = errors.New("one-time code already in use")
)

// Store keeps code hashes until they are consumed or expire.
type Store interface {
	// Issue stores codeHash for email, replacing the email's previous code.
	Issue(ctx context.Context, email, codeHash string, ttl time.Duration) (*models.OneTimeCode, error)
	// Consume returns and removes the code in one step, so it succeeds once.
	Consume(ctx context.Context, codeHash string) (*models.OneTimeCode, error)
}

var ten = big.NewInt(10)

// Generate returns an n-digit decimal code from crypto/rand. Leading zeros
// are kept.
func Generate(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}

// Hash returns the hex SHA-256 of code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
