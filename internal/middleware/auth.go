// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware guarding user routes.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/jobboard/internal/auth"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	authsvc "codeberg.org/oliverandrich/jobboard/internal/services/auth"
	"codeberg.org/oliverandrich/jobboard/internal/services/session"
	"codeberg.org/oliverandrich/jobboard/internal/services/token"
	"github.com/labstack/echo/v4"
)

// TokenHeader and TokenPrefix form the "token: jobapp <jwt>" request header.
const (
	TokenHeader = "token"
	TokenPrefix = "jobapp "
)

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, *token.Claims, error)
}

// RequireAuth loads the user behind the request's session token into the
// request context. Requests without a token fail with ErrTokenRequired.
func RequireAuth(a Authenticator, cookies *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := TokenFromRequest(c.Request(), cookies)
			if err != nil {
				return err
			}

			req := c.Request()
			user, claims, err := a.Authenticate(req.Context(), raw)
			if err != nil {
				return err
			}
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), user, claims)))
			return next(c)
		}
	}
}

// RequireRole lets only users holding one of roles through. It must run
// after RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := auth.GetUser(c.Request().Context())
			if user == nil {
				return authsvc.ErrNotLoggedIn
			}
			if !user.HasRole(roles...) {
				return authsvc.ErrUnauthorized
			}
			return next(c)
		}
	}
}

// TokenFromRequest reads the session token from the token header, a bearer
// Authorization header or the session cookie, in that order.
func TokenFromRequest(r *http.Request, cookies *session.Manager) (string, error) {
	if v := r.Header.Get(TokenHeader); v != "" {
		raw, ok := strings.CutPrefix(v, TokenPrefix)
		if !ok || raw == "" {
			return "", authsvc.ErrInvalidToken
		}
		return raw, nil
	}
	if v := r.Header.Get(echo.HeaderAuthorization); v != "" {
		raw, ok := strings.CutPrefix(v, "Bearer ")
		if !ok || raw == "" {
			return "", authsvc.ErrInvalidToken
		}
		return raw, nil
	}
	if cookies != nil {
		if raw := cookies.Parse(r); raw != "" {
			return raw, nil
		}
	}
	return "", authsvc.ErrTokenRequired
}
