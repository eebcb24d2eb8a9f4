// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
)

// CreateSession records an issued session token.
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	return wrapError(err)
}

// GetSession retrieves a session by ID.
func (r *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.db.GetContext(ctx, &s, `SELECT * FROM sessions WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// GetUnrevokedSessions returns the sessions of a user that were not revoked.
// Callers decide expiry against their own clock.
func (r *Repository) GetUnrevokedSessions(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT * FROM sessions WHERE user_id = ? AND revoked_at IS NULL ORDER BY created_at`, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return sessions, nil
}

// RevokeSession revokes a single session.
func (r *Repository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, at.UTC(), id))
}

// RevokeUserSessions revokes every open session of a user.
func (r *Repository) RevokeUserSessions(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`, at.UTC(), userID)
	return wrapError(err)
}
