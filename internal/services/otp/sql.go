// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"errors"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
)

// SQLStore keeps codes in the one_time_codes table. Expiry is checked when a
// code is consumed; expired rows are purged whenever a new code is issued.
type SQLStore struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewSQLStore creates a store backed by repo. now defaults to time.Now.
func NewSQLStore(repo *repository.Repository, now func() time.Time) *SQLStore {
	if now == nil {
		now = time.Now
	}
	return &SQLStore{repo: repo, now: now}
}

func (s *SQLStore) Issue(ctx context.Context, email, codeHash string, ttl time.Duration) (*models.OneTimeCode, error) {
	now := s.now().UTC()
	code := &models.OneTimeCode{
		Email:     email,
		CodeHash:  codeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.ReplaceOneTimeCode(ctx, code); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCollision
		}
		return nil, err
	}
	return code, nil
}

func (s *SQLStore) Consume(ctx context.Context, codeHash string) (*models.OneTimeCode, error) {
	code, err := s.repo.ConsumeOneTimeCode(ctx, codeHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if code.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return code, nil
}

// Purge deletes expired codes and returns how many were removed.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredOneTimeCodes(ctx, s.now())
}
