// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	"codeberg.org/oliverandrich/jobboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCode(emailAddr, hash string, now time.Time, ttl time.Duration) *models.OneTimeCode {
	return &models.OneTimeCode{Email: emailAddr, CodeHash: hash, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestReplaceOneTimeCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	code := newCode("ann@x.com", "hash-1", now, 30*time.Minute)
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, code))
	assert.NotZero(t, code.ID)

	got, err := repo.ConsumeOneTimeCode(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.WithinDuration(t, now.Add(30*time.Minute), got.ExpiresAt, time.Second)
}

func TestReplaceOneTimeCode_ReplacesPreviousForEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("ann@x.com", "hash-1", now, time.Hour)))
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("bob@x.com", "hash-2", now, time.Hour)))
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("ann@x.com", "hash-3", now, time.Hour)))

	_, err := repo.ConsumeOneTimeCode(ctx, "hash-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.ConsumeOneTimeCode(ctx, "hash-2")
	assert.NoError(t, err)
	_, err = repo.ConsumeOneTimeCode(ctx, "hash-3")
	assert.NoError(t, err)
}

func TestReplaceOneTimeCode_DuplicateHash(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("ann@x.com", "same", now, time.Hour)))

	err := repo.ReplaceOneTimeCode(ctx, newCode("bob@x.com", "same", now, time.Hour))

	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestConsumeOneTimeCode_Once(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("ann@x.com", "hash-1", time.Now().UTC(), time.Hour)))

	_, err := repo.ConsumeOneTimeCode(ctx, "hash-1")
	require.NoError(t, err)

	_, err = repo.ConsumeOneTimeCode(ctx, "hash-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteExpiredOneTimeCodes(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	// Issued first so the later insert does not purge the expired row.
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("bob@x.com", "fresh", now, 30*time.Minute)))
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("ann@x.com", "old", now.Add(-time.Hour), 30*time.Minute)))

	n, err := repo.DeleteExpiredOneTimeCodes(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.ConsumeOneTimeCode(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.ConsumeOneTimeCode(ctx, "fresh")
	assert.NoError(t, err)
}

func TestReplaceOneTimeCode_PurgesExpired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("ann@x.com", "old", now.Add(-time.Hour), 30*time.Minute)))

	require.NoError(t, repo.ReplaceOneTimeCode(ctx, newCode("bob@x.com", "fresh", now, 30*time.Minute)))

	_, err := repo.ConsumeOneTimeCode(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	n, err := repo.DeleteExpiredOneTimeCodes(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
