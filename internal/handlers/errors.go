// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	authsvc "codeberg.org/oliverandrich/jobboard/internal/services/auth"
	"codeberg.org/oliverandrich/jobboard/internal/validate"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorKinds maps service errors to a status and a stable code. Order
// matters only where errors wrap each other.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{authsvc.ErrValidation, http.StatusBadRequest, "validation"},
	{authsvc.ErrConflict, http.StatusConflict, "conflict"},
	{authsvc.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{authsvc.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{authsvc.ErrTokenRequired, http.StatusUnauthorized, "token_required"},
	{authsvc.ErrNotLoggedIn, http.StatusBadRequest, "not_logged_in"},
	{authsvc.ErrAlreadyOnline, http.StatusBadRequest, "already_online"},
	{authsvc.ErrNotFound, http.StatusNotFound, "not_found"},
	{authsvc.ErrInvalidOrExpired, http.StatusBadRequest, "invalid_or_expired"},
	{authsvc.ErrNotVerified, http.StatusBadRequest, "not_verified"},
	{authsvc.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{authsvc.ErrMailDelivery, http.StatusInternalServerError, "mail_error"},
}

// ErrorHandler renders errors returned by handlers and middleware. It is
// installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"code", body.Error,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to write error response", "error", err)
	}
}

func classify(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorResponse{
			Error:   strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_"),
			Message: fmt.Sprint(he.Message),
		}
	}

	for _, kind := range errorKinds {
		if !errors.Is(err, kind.err) {
			continue
		}
		body := ErrorResponse{Error: kind.code, Message: kind.err.Error()}
		var verr *validate.Error
		if errors.As(err, &verr) {
			body.Message = "validation failed"
			body.Fields = verr.Fields
		}
		return kind.status, body
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "internal server error",
	}
}
