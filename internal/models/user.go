// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"slices"
	"time"
)

// Role is the authorization role of an account.
type Role string

const (
	RoleUser      Role = "User"
	RoleCompanyHR Role = "CompanyHR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleCompanyHR
}

// Status is the advisory login status of an account.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// User is an account with its credential, login status and reset state.
// Secrets and internal state never leave the service in JSON.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID                 string     `db:"id" json:"_id"`
	FirstName          string     `db:"first_name" json:"firstName"`
	LastName           string     `db:"last_name" json:"lastName"`
	Handle             string     `db:"handle" json:"userName"`
	Email              string     `db:"email" json:"email"`
	RecoveryEmail      string     `db:"recovery_email" json:"recoveryEmail"`
	MobileNumber       string     `db:"mobile_number" json:"mobileNumber"`
	DateOfBirth        time.Time  `db:"date_of_birth" json:"dateOfBirth"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Role               Role       `db:"role" json:"role"`
	Status             Status     `db:"status" json:"status"`
	EmailConfirmed     bool       `db:"email_confirmed" json:"-"`
	ResetCodeHash      *string    `db:"reset_code_hash" json:"-"`
	ResetCodeExpiresAt *time.Time `db:"reset_code_expires_at" json:"-"`
	ResetVerified      bool       `db:"reset_verified" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"-"`
	UpdatedAt          time.Time  `db:"updated_at" json:"-"`
}

// IsOnline reports whether the user is marked as logged in.
func (u *User) IsOnline() bool {
	return u.Status == StatusOnline
}

// HasRole reports whether the user holds one of the given roles.
func (u *User) HasRole(roles ...Role) bool {
	return slices.Contains(roles, u.Role)
}

// ResetCodeValid reports whether a reset code is pending and unexpired at now.
func (u *User) ResetCodeValid(now time.Time) bool {
	return u.ResetCodeHash != nil && u.ResetCodeExpiresAt != nil && now.Before(*u.ResetCodeExpiresAt)
}
