// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/metrics"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/services/auth"
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
	"codeberg.org/oliverandrich/jobboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		mobile   string
	}{
		{"by email", "ann@x.com", ""},
		{"by recovery email", "recovery.ann@x.com", ""},
		{"by mobile", "", "+15550000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			user := e.signup(t, "ann@x.com", "+15550000001")

			result, err := e.svc.Login(ctx, tt.identity, tt.mobile, testutil.TestPassword)

			require.NoError(t, err)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, user.ID, result.Claims.UserID)
			assert.Equal(t, "ann@x.com", result.Claims.Email)
			assert.Equal(t, string(models.RoleUser), result.Claims.Role)
			assert.Equal(t, models.StatusOnline, result.User.Status)

			sess, err := e.repo.GetSession(ctx, result.Claims.ID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, sess.UserID)
			assert.True(t, e.clock.Now().Add(time.Hour).Equal(sess.ExpiresAt))

			authed, claims, err := e.svc.Authenticate(ctx, result.Token)
			require.NoError(t, err)
			assert.Equal(t, user.ID, authed.ID)
			assert.Equal(t, result.Claims.ID, claims.ID)
			assert.Contains(t, e.events.Subjects(), events.UserLoggedIn)
		})
	}
}

func TestLogin_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")

	_, wrongPassword := e.svc.Login(ctx, "ann@x.com", "", "Wr0ng!pass")
	_, unknownUser := e.svc.Login(ctx, "nobody@x.com", "", testutil.TestPassword)

	assert.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, 2.0, e.count("login", metrics.ResultFailure))

	stored, err := e.repo.GetUserByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, stored.Status)
}

func TestLogin_AlreadyOnline(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@x.com", "+15550000001")
	e.login(t, "ann@x.com")

	_, err := e.svc.Login(context.Background(), "ann@x.com", "", testutil.TestPassword)

	assert.ErrorIs(t, err, auth.ErrAlreadyOnline)
}

func TestLogin_StaleOnlineStatusHeals(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@x.com", "+15550000001")
	first := e.login(t, "ann@x.com")

	e.clock.Advance(2 * time.Hour)
	second, err := e.svc.Login(context.Background(), "ann@x.com", "", testutil.TestPassword)

	require.NoError(t, err)
	assert.NotEqual(t, first.Claims.ID, second.Claims.ID)
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.signup(t, "ann@x.com", "+15550000001")
	result := e.login(t, "ann@x.com")

	require.NoError(t, e.svc.Logout(ctx, user.ID, result.Claims.ID))

	stored, err := e.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, stored.Status)
	assert.Contains(t, e.events.Subjects(), events.UserLoggedOut)

	_, _, err = e.svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
	assert.ErrorIs(t, e.svc.Logout(ctx, user.ID, result.Claims.ID), auth.ErrNotLoggedIn)

	e.login(t, "ann@x.com")
}

func TestAuthenticate_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.signup(t, "ann@x.com", "+15550000001")
	verification := e.lastLinkToken(t)
	result := e.login(t, "ann@x.com")
	unknownSession, _, err := e.sessionTokens.Issue(token.Claims{UserID: user.ID})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", auth.ErrInvalidToken},
		{"email verification token", verification, auth.ErrInvalidToken},
		{"no session row", unknownSession, auth.ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.svc.Authenticate(ctx, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("user marked offline", func(t *testing.T) {
		require.NoError(t, e.repo.SetUserStatus(ctx, user.ID, models.StatusOffline))
		_, _, err := e.svc.Authenticate(ctx, result.Token)
		assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
	})
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@x.com", "+15550000001")
	result := e.login(t, "ann@x.com")

	e.clock.Advance(time.Hour + time.Second)
	_, _, err := e.svc.Authenticate(context.Background(), result.Token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
