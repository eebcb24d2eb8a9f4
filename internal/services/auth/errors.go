// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"errors"

	"codeberg.org/oliverandrich/jobboard/internal/validate"
)

var (
	// ErrValidation is the same sentinel validate errors match.
	ErrValidation         = validate.ErrValidation
	ErrConflict           = errors.New("email or mobile number already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRequired      = errors.New("token is required")
	ErrNotLoggedIn        = errors.New("please login first")
	ErrAlreadyOnline      = errors.New("user already logged in")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidOrExpired   = errors.New("invalid or expired code")
	ErrNotVerified        = errors.New("reset code not verified")
	ErrMailDelivery       = errors.New("email could not be sent")
	ErrUnauthorized       = errors.New("you are not allowed to access this resource")
	// ErrHandleSpaceExhausted means every handle candidate was taken.
	ErrHandleSpaceExhausted = errors.New("could not generate a unique handle")
)
