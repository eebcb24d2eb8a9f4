// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package validate

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"codeberg.org/oliverandrich/jobboard/internal/models"
)

// ResetCodeLength is the fixed length of advanced reset codes.
const ResetCodeLength = 6

// SignupInput is the signup payload.
type SignupInput struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	RecoveryEmail string `json:"recoveryEmail"`
	DateOfBirth   string `json:"DOB"`
	MobileNumber  string `json:"mobileNumber"`
	Role          string `json:"role"`
}

// Validate checks every field and that the two addresses differ.
func (in SignupInput) Validate(now func() time.Time) error {
	err := fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required, nameRule),
		validation.Field(&in.LastName, validation.Required, nameRule),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, passwordRule),
		validation.Field(&in.RecoveryEmail, validation.Required, is.Email),
		validation.Field(&in.DateOfBirth, validation.Required, dateOfBirthRule(now)),
		validation.Field(&in.MobileNumber, validation.Required, mobileRule),
		validation.Field(&in.Role, validation.Required,
			validation.In(string(models.RoleUser), string(models.RoleCompanyHR))),
	))
	if err != nil {
		return err
	}
	if strings.EqualFold(in.Email, in.RecoveryEmail) {
		return Field("recoveryEmail", "must differ from email")
	}
	return nil
}

// LoginInput is the login payload. Either email or mobile number is required.
type LoginInput struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

func (in LoginInput) Validate() error {
	err := fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.Email, is.Email),
		validation.Field(&in.MobileNumber, mobileRule),
		validation.Field(&in.Password, validation.Required),
	))
	if err != nil {
		return err
	}
	if in.Email == "" && in.MobileNumber == "" {
		return Field("email", "email or mobileNumber is required")
	}
	return nil
}

// UpdateProfileInput is a partial profile update. Nil fields are unchanged.
type UpdateProfileInput struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	Email         *string `json:"email"`
	RecoveryEmail *string `json:"recoveryEmail"`
	DateOfBirth   *string `json:"DOB"`
	MobileNumber  *string `json:"mobileNumber"`
}

// Validate checks the present fields and requires at least one.
func (in UpdateProfileInput) Validate(now func() time.Time) error {
	if in.FirstName == nil && in.LastName == nil && in.Email == nil &&
		in.RecoveryEmail == nil && in.DateOfBirth == nil && in.MobileNumber == nil {
		return Field("body", "at least one field is required")
	}
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.NilOrNotEmpty, nameRule),
		validation.Field(&in.LastName, validation.NilOrNotEmpty, nameRule),
		validation.Field(&in.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&in.RecoveryEmail, validation.NilOrNotEmpty, is.Email),
		validation.Field(&in.DateOfBirth, validation.NilOrNotEmpty, dateOfBirthRule(now)),
		validation.Field(&in.MobileNumber, validation.NilOrNotEmpty, mobileRule),
	))
}

// UpdatePasswordInput changes the password of the signed in user.
type UpdatePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (in UpdatePasswordInput) Validate() error {
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.OldPassword, validation.Required),
		validation.Field(&in.NewPassword, validation.Required, passwordRule),
	))
}

// EmailInput starts either password reset flow.
type EmailInput struct {
	Email string `json:"email" query:"email"`
}

func (in EmailInput) Validate() error {
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
	))
}

// VerifyOTPInput redeems a one-time code for a new password.
type VerifyOTPInput struct {
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// Validate checks the code against the configured length.
func (in VerifyOTPInput) Validate(length int) error {
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.OTP, append([]validation.Rule{validation.Required}, digitsRule(length)...)...),
		validation.Field(&in.NewPassword, validation.Required, passwordRule),
	))
}

// ResetCodeInput verifies an advanced reset code.
type ResetCodeInput struct {
	ResetCode string `json:"resetCode"`
}

func (in ResetCodeInput) Validate() error {
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.ResetCode, append([]validation.Rule{validation.Required}, digitsRule(ResetCodeLength)...)...),
	))
}

// ResetPasswordInput completes the advanced reset flow.
type ResetPasswordInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in ResetPasswordInput) Validate() error {
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, passwordRule),
	))
}

// ID checks a user ID taken from a query string.
func ID(id string) error {
	return fromOzzo(validation.Errors{
		"_id": validation.Validate(id, validation.Required, is.UUID),
	}.Filter())
}
