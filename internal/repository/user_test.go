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
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(emailAddr, mobile, handle string) *models.User {
	return &models.User{
		ID:            uuid.NewString(),
		FirstName:     "ann",
		LastName:      "lee",
		Handle:        handle,
		Email:         emailAddr,
		RecoveryEmail: "r." + emailAddr,
		MobileNumber:  mobile,
		DateOfBirth:   time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		PasswordHash:  "hash",
		Role:          models.RoleUser,
	}
}

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := newUser("ann@x.com", "+15551234567", "annlee")
	require.NoError(t, repo.CreateUser(ctx, user))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "annlee", got.Handle)
	assert.Equal(t, models.StatusOffline, got.Status)
	assert.False(t, got.EmailConfirmed)
	assert.False(t, got.ResetVerified)
	assert.Nil(t, got.ResetCodeHash)
	assert.Nil(t, got.ResetCodeExpiresAt)
	assert.True(t, got.DateOfBirth.Equal(user.DateOfBirth))
	assert.NotZero(t, got.CreatedAt)
}

func TestCreateUser_DuplicateColumns(t *testing.T) {
	tests := []struct {
		name   string
		second *models.User
		column string
	}{
		{"email", newUser("ann@x.com", "+15550000002", "other"), "email"},
		{"mobile", newUser("bob@x.com", "+15550000001", "other"), "mobile_number"},
		{"handle", newUser("bob@x.com", "+15550000002", "annlee"), "handle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, repo := testutil.NewTestDB(t)
			ctx := context.Background()
			require.NoError(t, repo.CreateUser(ctx, newUser("ann@x.com", "+15550000001", "annlee")))

			err := repo.CreateUser(ctx, tt.second)

			require.ErrorIs(t, err, repository.ErrDuplicate)
			assert.Equal(t, tt.column, repository.DuplicateColumn(err))
		})
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByID(context.Background(), "missing")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindUserByIdentity(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")

	byEmail, err := repo.FindUserByIdentity(ctx, "ann@x.com", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byRecovery, err := repo.FindUserByIdentity(ctx, "recovery.ann@x.com", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byRecovery.ID)

	byMobile, err := repo.FindUserByIdentity(ctx, "", user.MobileNumber)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byMobile.ID)

	_, err = repo.FindUserByIdentity(ctx, "", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindUserByIdentity(ctx, "nobody@x.com", "+19999999999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIdentityTaken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")

	tests := []struct {
		name    string
		exclude string
		mobile  string
		emails  []string
		want    bool
	}{
		{"free", "", "+19999999999", []string{"bob@x.com"}, false},
		{"email as email", "", "", []string{"ann@x.com"}, true},
		{"email as recovery", "", "", []string{"recovery.ann@x.com"}, true},
		{"mobile", "", user.MobileNumber, nil, true},
		{"own email excluded", user.ID, user.MobileNumber, []string{"ann@x.com"}, false},
		{"empty inputs", "", "", []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken, err := repo.IdentityTaken(ctx, tt.exclude, tt.mobile, tt.emails...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, taken)
		})
	}
}

func TestHandleExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")

	exists, err := repo.HandleExists(ctx, user.Handle)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.HandleExists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateUserFields(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")

	first := "anna"
	newEmail := "anna@x.com"
	confirmed := false
	err := repo.UpdateUserFields(ctx, user.ID, repository.UserFields{
		FirstName:      &first,
		Email:          &newEmail,
		EmailConfirmed: &confirmed,
	})
	require.NoError(t, err)

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna", got.FirstName)
	assert.Equal(t, "anna@x.com", got.Email)
	assert.Equal(t, user.LastName, got.LastName)
	assert.Equal(t, user.Handle, got.Handle)
	assert.False(t, got.EmailConfirmed)
}

func TestUpdateUserFields_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	first := "anna"

	err := repo.UpdateUserFields(context.Background(), "missing", repository.UserFields{FirstName: &first})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserFields_Empty(t *testing.T) {
	first := "anna"
	assert.True(t, repository.UserFields{}.Empty())
	assert.False(t, repository.UserFields{FirstName: &first}.Empty())
}

func TestConfirmUserEmail_OnlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := newUser("ann@x.com", "+15551234567", "annlee")
	require.NoError(t, repo.CreateUser(ctx, user))

	require.NoError(t, repo.ConfirmUserEmail(ctx, user.ID))
	err := repo.ConfirmUserEmail(ctx, user.ID)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailConfirmed)
}

func TestSetUserStatus(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")

	require.NoError(t, repo.SetUserStatus(ctx, user.ID, models.StatusOnline))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline())
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestResetCodeLifecycle(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")
	expires := time.Now().Add(15 * time.Minute).UTC()

	// Completing before verification touches nothing
	err := repo.CompleteReset(ctx, user.ID, "new-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.SetResetCode(ctx, user.ID, "code-hash", expires))

	got, err := repo.GetUserByResetCodeHash(ctx, "code-hash")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotNil(t, got.ResetCodeExpiresAt)
	assert.WithinDuration(t, expires, *got.ResetCodeExpiresAt, time.Second)
	assert.False(t, got.ResetVerified)

	require.NoError(t, repo.MarkResetVerified(ctx, user.ID))
	require.NoError(t, repo.CompleteReset(ctx, user.ID, "new-hash"))

	got, err = repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Nil(t, got.ResetCodeHash)
	assert.Nil(t, got.ResetCodeExpiresAt)
	assert.False(t, got.ResetVerified)

	_, err = repo.GetUserByResetCodeHash(ctx, "code-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClearResetCode(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")
	require.NoError(t, repo.SetResetCode(ctx, user.ID, "code-hash", time.Now().Add(time.Minute)))
	require.NoError(t, repo.MarkResetVerified(ctx, user.ID))

	require.NoError(t, repo.ClearResetCode(ctx, user.ID))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ResetCodeHash)
	assert.False(t, got.ResetVerified)
	assert.ErrorIs(t, repo.MarkResetVerified(ctx, user.ID), repository.ErrNotFound)
}

func TestClaimOnline(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")
	now := time.Now().UTC()

	require.NoError(t, repo.ClaimOnline(ctx, user.ID, now))
	require.NoError(t, repo.CreateSession(ctx, &models.Session{
		ID: uuid.NewString(), UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	// Online with a live session
	assert.ErrorIs(t, repo.ClaimOnline(ctx, user.ID, now), repository.ErrNotFound)

	// Online but every session expired
	assert.NoError(t, repo.ClaimOnline(ctx, user.ID, now.Add(2*time.Hour)))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline())
}

func TestClaimOnline_RevokedSessions(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ann@x.com")
	now := time.Now().UTC()
	require.NoError(t, repo.ClaimOnline(ctx, user.ID, now))
	require.NoError(t, repo.CreateSession(ctx, &models.Session{
		ID: uuid.NewString(), UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, repo.RevokeUserSessions(ctx, user.ID, now))

	assert.NoError(t, repo.ClaimOnline(ctx, user.ID, now))
	assert.ErrorIs(t, repo.ClaimOnline(ctx, "missing", now), repository.ErrNotFound)
}
