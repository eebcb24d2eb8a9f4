// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/jobboard/internal/ctxkeys"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
)

// WithIdentity stores the authenticated user and their session claims.
func WithIdentity(ctx context.Context, user *models.User, claims *token.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.User{}, user)
	return context.WithValue(ctx, ctxkeys.Claims{}, claims)
}

// GetUser returns the authenticated user from the context, or nil if not authenticated.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(ctxkeys.User{}).(*models.User); ok {
		return user
	}
	return nil
}

// GetClaims returns the session claims from the context, or nil.
func GetClaims(ctx context.Context) *token.Claims {
	if claims, ok := ctx.Value(ctxkeys.Claims{}).(*token.Claims); ok {
		return claims
	}
	return nil
}

// IsAuthenticated returns true if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}
