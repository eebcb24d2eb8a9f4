// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"strings"

	"codeberg.org/oliverandrich/jobboard/internal/validate"
	"github.com/labstack/echo/v4"
)

// MessageResponse is the body of operations without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// bind decodes the request into v and reports malformed bodies as a
// validation error.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return validate.Field("body", "malformed request body")
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeEmailPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := normalizeEmail(*s)
	return &v
}
