// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/events"
	"codeberg.org/oliverandrich/jobboard/internal/services/auth"
	"codeberg.org/oliverandrich/jobboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")

	require.NoError(t, e.svc.ForgetPassword(ctx, "ann@x.com"))
	msg := e.mailer.Last(t)
	assert.Equal(t, []string{"ann@x.com"}, msg.To)
	assert.Contains(t, msg.Text, "30 minutes")
	code := e.lastCode(t)

	require.NoError(t, e.svc.VerifyOTP(ctx, code, newPassword))

	_, err := e.svc.Login(ctx, "ann@x.com", "", newPassword)
	assert.NoError(t, err)
	assert.Contains(t, e.events.Subjects(), events.UserPasswordChanged)

	assert.ErrorIs(t, e.svc.VerifyOTP(ctx, code, "An0ther!pass"), auth.ErrInvalidOrExpired)
}

func TestForgetPassword_UnknownEmail(t *testing.T) {
	e := newEnv(t)

	err := e.svc.ForgetPassword(context.Background(), "nobody@x.com")

	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.Zero(t, e.mailer.Count())
}

func TestForgetPassword_MailFailure(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ann@x.com", "+15550000001")
	e.mailer.Err = assert.AnError

	err := e.svc.ForgetPassword(context.Background(), "ann@x.com")

	assert.ErrorIs(t, err, auth.ErrMailDelivery)
}

func TestForgetPassword_NewCodeReplacesOld(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")

	require.NoError(t, e.svc.ForgetPassword(ctx, "ann@x.com"))
	first := e.lastCode(t)
	require.NoError(t, e.svc.ForgetPassword(ctx, "ann@x.com"))
	second := e.lastCode(t)

	if first != second {
		assert.ErrorIs(t, e.svc.VerifyOTP(ctx, first, newPassword), auth.ErrInvalidOrExpired)
	}
	assert.NoError(t, e.svc.VerifyOTP(ctx, second, newPassword))
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.ForgetPassword(ctx, "ann@x.com"))
	code := e.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, e.svc.VerifyOTP(ctx, wrong, newPassword), auth.ErrInvalidOrExpired)
	assert.NoError(t, e.svc.VerifyOTP(ctx, code, newPassword))
}

func TestVerifyOTP_Expired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.ForgetPassword(ctx, "ann@x.com"))
	code := e.lastCode(t)

	e.clock.Advance(30 * time.Minute)

	assert.ErrorIs(t, e.svc.VerifyOTP(ctx, code, newPassword), auth.ErrInvalidOrExpired)
	_, err := e.svc.Login(ctx, "ann@x.com", "", testutil.TestPassword)
	assert.NoError(t, err)
}

func TestVerifyOTP_EndsSessions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	session := e.login(t, "ann@x.com")
	require.NoError(t, e.svc.ForgetPassword(ctx, "ann@x.com"))

	require.NoError(t, e.svc.VerifyOTP(ctx, e.lastCode(t), newPassword))

	_, _, err := e.svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
	_, err = e.svc.Login(ctx, "ann@x.com", "", newPassword)
	assert.NoError(t, err)
}

func TestAdvancedResetFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.signup(t, "ann@x.com", "+15550000001")

	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))
	msg := e.mailer.Last(t)
	assert.Contains(t, msg.Text, "Hello Ann Lee")
	assert.Contains(t, msg.Text, "15 minutes")
	code := e.lastCode(t)

	require.NoError(t, e.svc.VerifyResetCode(ctx, code))
	require.NoError(t, e.svc.ResetPassword(ctx, "ann@x.com", newPassword))

	stored, err := e.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetCodeHash)
	assert.Nil(t, stored.ResetCodeExpiresAt)
	assert.False(t, stored.ResetVerified)

	_, err = e.svc.Login(ctx, "ann@x.com", "", newPassword)
	assert.NoError(t, err)

	assert.ErrorIs(t, e.svc.ResetPassword(ctx, "ann@x.com", "An0ther!pass"), auth.ErrNotVerified)
	assert.ErrorIs(t, e.svc.VerifyResetCode(ctx, code), auth.ErrInvalidOrExpired)
}

func TestResetPassword_BeforeVerify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))

	err := e.svc.ResetPassword(ctx, "ann@x.com", newPassword)

	assert.ErrorIs(t, err, auth.ErrNotVerified)
	_, err = e.svc.Login(ctx, "ann@x.com", "", testutil.TestPassword)
	assert.NoError(t, err)
}

func TestResetPassword_UnknownEmail(t *testing.T) {
	e := newEnv(t)

	err := e.svc.ResetPassword(context.Background(), "nobody@x.com", newPassword)

	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestVerifyResetCode_Wrong(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))
	code := e.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, e.svc.VerifyResetCode(ctx, wrong), auth.ErrInvalidOrExpired)
}

func TestVerifyResetCode_Expired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))
	code := e.lastCode(t)

	e.clock.Advance(15 * time.Minute)

	assert.ErrorIs(t, e.svc.VerifyResetCode(ctx, code), auth.ErrInvalidOrExpired)
}

func TestAdvancedForgetPassword_CodeLivesFifteenMinutes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.signup(t, "ann@x.com", "+15550000001")
	issuedAt := e.clock.Now()
	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))

	stored, err := e.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetCodeExpiresAt)
	assert.True(t, issuedAt.Add(15*time.Minute).Equal(*stored.ResetCodeExpiresAt))

	e.clock.Advance(14 * time.Minute)
	assert.NoError(t, e.svc.VerifyResetCode(ctx, e.lastCode(t)))
}

func TestResetPassword_ExpiresAfterVerify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))
	require.NoError(t, e.svc.VerifyResetCode(ctx, e.lastCode(t)))

	e.clock.Advance(16 * time.Minute)

	assert.ErrorIs(t, e.svc.ResetPassword(ctx, "ann@x.com", newPassword), auth.ErrInvalidOrExpired)
	stored, err := e.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.ResetVerified)
	assert.Nil(t, stored.ResetCodeHash)
}

func TestAdvancedForgetPassword_NewCodeResetsVerification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ann@x.com", "+15550000001")
	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))
	require.NoError(t, e.svc.VerifyResetCode(ctx, e.lastCode(t)))

	require.NoError(t, e.svc.AdvancedForgetPassword(ctx, "ann@x.com"))

	assert.ErrorIs(t, e.svc.ResetPassword(ctx, "ann@x.com", newPassword), auth.ErrNotVerified)
}

func TestAdvancedForgetPassword_MailFailureClearsCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.signup(t, "ann@x.com", "+15550000001")
	e.mailer.Reject = []string{"ann@x.com"}

	err := e.svc.AdvancedForgetPassword(ctx, "ann@x.com")

	assert.ErrorIs(t, err, auth.ErrMailDelivery)
	stored, err := e.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetCodeHash)
}

func TestAdvancedForgetPassword_UnknownEmail(t *testing.T) {
	e := newEnv(t)

	assert.ErrorIs(t, e.svc.AdvancedForgetPassword(context.Background(), "nobody@x.com"), auth.ErrNotFound)
}
