// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package validate_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/testutil"
	"codeberg.org/oliverandrich/jobboard/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func validSignup() validate.SignupInput {
	return validate.SignupInput{
		FirstName:     "Ann",
		LastName:      "Lee",
		Email:         "ann@x.com",
		Password:      testutil.TestPassword,
		RecoveryEmail: "ann2@x.com",
		DateOfBirth:   "1990-01-02",
		MobileNumber:  "+15551234567",
		Role:          "User",
	}
}

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, validate.ErrValidation)
	var verr *validate.Error
	require.True(t, errors.As(err, &verr))
	return verr.Fields
}

func TestSignupInput(t *testing.T) {
	now := testutil.NewClock().Now

	tests := []struct {
		name   string
		mutate func(*validate.SignupInput)
		field  string
	}{
		{"short first name", func(in *validate.SignupInput) { in.FirstName = "An" }, "firstName"},
		{"digits in last name", func(in *validate.SignupInput) { in.LastName = "L33" }, "lastName"},
		{"two word name", func(in *validate.SignupInput) { in.FirstName = "Mary Ann" }, ""},
		{"bad email", func(in *validate.SignupInput) { in.Email = "nope" }, "email"},
		{"weak password", func(in *validate.SignupInput) { in.Password = "password1" }, "password"},
		{"password with space", func(in *validate.SignupInput) { in.Password = "Secr3t! pass" }, "password"},
		{"short password", func(in *validate.SignupInput) { in.Password = "Aa1!aaa" }, "password"},
		{"password over bcrypt limit", func(in *validate.SignupInput) { in.Password = "Aa1!" + strings.Repeat("a", 69) }, "password"},
		{"future birthday", func(in *validate.SignupInput) { in.DateOfBirth = "2030-01-01" }, "DOB"},
		{"birthday not a date", func(in *validate.SignupInput) { in.DateOfBirth = "yesterday" }, "DOB"},
		{"rfc3339 birthday", func(in *validate.SignupInput) { in.DateOfBirth = "1990-01-02T00:00:00Z" }, ""},
		{"bad mobile", func(in *validate.SignupInput) { in.MobileNumber = "12" }, "mobileNumber"},
		{"bad role", func(in *validate.SignupInput) { in.Role = "Admin" }, "role"},
		{"hr role", func(in *validate.SignupInput) { in.Role = "CompanyHR" }, ""},
		{"missing recovery", func(in *validate.SignupInput) { in.RecoveryEmail = "" }, "recoveryEmail"},
		{"same addresses", func(in *validate.SignupInput) { in.RecoveryEmail = "ANN@x.com" }, "recoveryEmail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSignup()
			tt.mutate(&in)

			err := in.Validate(now)

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, fields(t, err), tt.field)
		})
	}
}

func TestSignupInput_Valid(t *testing.T) {
	assert.NoError(t, validSignup().Validate(testutil.NewClock().Now))
}

func TestLoginInput(t *testing.T) {
	assert.NoError(t, validate.LoginInput{Email: "ann@x.com", Password: "x"}.Validate())
	assert.NoError(t, validate.LoginInput{MobileNumber: "+15551234567", Password: "x"}.Validate())

	assert.Contains(t, fields(t, validate.LoginInput{Password: "x"}.Validate()), "email")
	assert.Contains(t, fields(t, validate.LoginInput{Email: "ann@x.com"}.Validate()), "password")
}

func TestUpdateProfileInput(t *testing.T) {
	now := testutil.NewClock().Now

	assert.Contains(t, fields(t, validate.UpdateProfileInput{}.Validate(now)), "body")
	assert.NoError(t, validate.UpdateProfileInput{FirstName: ptr("Anna")}.Validate(now))
	assert.Contains(t, fields(t, validate.UpdateProfileInput{FirstName: ptr("A")}.Validate(now)), "firstName")
	assert.Contains(t, fields(t, validate.UpdateProfileInput{Email: ptr("nope")}.Validate(now)), "email")
	assert.Contains(t, fields(t, validate.UpdateProfileInput{MobileNumber: ptr("1")}.Validate(now)), "mobileNumber")
	assert.Contains(t, fields(t, validate.UpdateProfileInput{DateOfBirth: ptr("2999-01-01")}.Validate(now)), "DOB")
}

func TestUpdatePasswordInput(t *testing.T) {
	assert.NoError(t, validate.UpdatePasswordInput{OldPassword: "anything", NewPassword: "N3w!passw"}.Validate())
	assert.Contains(t, fields(t, validate.UpdatePasswordInput{OldPassword: "x", NewPassword: "weak"}.Validate()), "newPassword")
	assert.NoError(t, validate.UpdatePasswordInput{OldPassword: "x", NewPassword: "Aa1!" + strings.Repeat("a", 68)}.Validate())
	assert.Contains(t, fields(t, validate.UpdatePasswordInput{OldPassword: "x", NewPassword: "Aa1!" + strings.Repeat("a", 69)}.Validate()), "newPassword")
}

func TestVerifyOTPInput(t *testing.T) {
	assert.NoError(t, validate.VerifyOTPInput{OTP: "123456", NewPassword: "N3w!passw"}.Validate(6))
	assert.Contains(t, fields(t, validate.VerifyOTPInput{OTP: "12345", NewPassword: "N3w!passw"}.Validate(6)), "otp")
	assert.Contains(t, fields(t, validate.VerifyOTPInput{OTP: "12345a", NewPassword: "N3w!passw"}.Validate(6)), "otp")
	assert.NoError(t, validate.VerifyOTPInput{OTP: "1234", NewPassword: "N3w!passw"}.Validate(4))
}

func TestResetInputs(t *testing.T) {
	assert.NoError(t, validate.ResetCodeInput{ResetCode: "000123"}.Validate())
	assert.Contains(t, fields(t, validate.ResetCodeInput{ResetCode: "1234567"}.Validate()), "resetCode")

	assert.NoError(t, validate.ResetPasswordInput{Email: "ann@x.com", Password: "N3w!passw"}.Validate())
	assert.Contains(t, fields(t, validate.ResetPasswordInput{Email: "ann@x.com"}.Validate()), "password")

	assert.NoError(t, validate.EmailInput{Email: "ann@x.com"}.Validate())
	assert.Contains(t, fields(t, validate.EmailInput{}.Validate()), "email")
}

func TestID(t *testing.T) {
	assert.NoError(t, validate.ID("0b6f1c52-8d0a-4c38-9d8f-3f7f5f0c2b11"))
	assert.Contains(t, fields(t, validate.ID("abc")), "_id")
	assert.Contains(t, fields(t, validate.ID("")), "_id")
}

func TestNormalizeMobile(t *testing.T) {
	got, err := validate.NormalizeMobile("(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got)

	got, err = validate.NormalizeMobile("+49 30 12345678")
	require.NoError(t, err)
	assert.Equal(t, "+493012345678", got)

	_, err = validate.NormalizeMobile("abc")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := validate.ParseDate("1990-01-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC), d)
}

func TestError_Message(t *testing.T) {
	err := &validate.Error{Fields: map[string]string{"b": "two", "a": "one"}}

	assert.Equal(t, "a: one; b: two", err.Error())
}
