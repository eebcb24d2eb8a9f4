// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
)

// UserFields is a partial user update. Nil fields are left unchanged.
type UserFields struct {
	FirstName      *string
	LastName       *string
	Email          *string
	RecoveryEmail  *string
	MobileNumber   *string
	DateOfBirth    *time.Time
	EmailConfirmed *bool
}

// Empty reports whether no field is set.
func (f UserFields) Empty() bool {
	return f.FirstName == nil && f.LastName == nil && f.Email == nil && f.RecoveryEmail == nil &&
		f.MobileNumber == nil && f.DateOfBirth == nil && f.EmailConfirmed == nil
}

// CreateUser inserts a new user. Unique violations are returned as *DuplicateError.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	if user.Status == "" {
		user.Status = models.StatusOffline
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (
			id, first_name, last_name, handle, email, recovery_email, mobile_number,
			date_of_birth, password_hash, role, status, email_confirmed,
			reset_code_hash, reset_code_expires_at, reset_verified, created_at, updated_at
		) VALUES (
			:id, :first_name, :last_name, :handle, :email, :recovery_email, :mobile_number,
			:date_of_birth, :password_hash, :role, :status, :email_confirmed,
			:reset_code_hash, :reset_code_expires_at, :reset_verified, :created_at, :updated_at
		)`, user)
	return wrapError(err)
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by primary email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// FindUserByIdentity returns the oldest user whose email or recovery email
// equals email, or whose mobile number equals mobile. Empty inputs never match.
func (r *Repository) FindUserByIdentity(ctx context.Context, email, mobile string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users
		WHERE (? <> '' AND (email = ? OR recovery_email = ?))
		   OR (? <> '' AND mobile_number = ?)
		ORDER BY created_at
		LIMIT 1`,
		email, email, email, mobile, mobile)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// IdentityTaken reports whether any user other than excludeID already uses one
// of the given addresses (as email or recovery email) or the mobile number.
func (r *Repository) IdentityTaken(ctx context.Context, excludeID string, mobile string, emails ...string) (bool, error) {
	var addrs []string
	for _, e := range emails {
		if e != "" {
			addrs = append(addrs, e)
		}
	}

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id <> ? AND ((? <> '' AND mobile_number = ?)`
	args := []any{excludeID, mobile, mobile}
	if len(addrs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(addrs)), ",")
		query += ` OR email IN (` + placeholders + `) OR recovery_email IN (` + placeholders + `)`
		for range 2 {
			for _, a := range addrs {
				args = append(args, a)
			}
		}
	}
	query += `))`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, wrapError(err)
	}
	return exists, nil
}

// HandleExists checks if a user with the given handle exists.
func (r *Repository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE handle = ?)`, handle)
	return exists, wrapError(err)
}

// UpdateUserFields applies a partial update to a user.
func (r *Repository) UpdateUserFields(ctx context.Context, id string, fields UserFields) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if fields.FirstName != nil {
		add("first_name", *fields.FirstName)
	}
	if fields.LastName != nil {
		add("last_name", *fields.LastName)
	}
	if fields.Email != nil {
		add("email", *fields.Email)
	}
	if fields.RecoveryEmail != nil {
		add("recovery_email", *fields.RecoveryEmail)
	}
	if fields.MobileNumber != nil {
		add("mobile_number", *fields.MobileNumber)
	}
	if fields.DateOfBirth != nil {
		add("date_of_birth", fields.DateOfBirth.UTC())
	}
	if fields.EmailConfirmed != nil {
		add("email_confirmed", *fields.EmailConfirmed)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	return affected(r.db.ExecContext(ctx, query, args...))
}

// ConfirmUserEmail marks the email confirmed if it is not already.
// Returns ErrNotFound if the user does not exist or is already confirmed.
func (r *Repository) ConfirmUserEmail(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET email_confirmed = 1, updated_at = ? WHERE id = ? AND email_confirmed = 0`,
		time.Now().UTC(), id))
}

// SetUserStatus sets the login status of a user.
func (r *Repository) SetUserStatus(ctx context.Context, id string, status models.Status) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id))
}

// ClaimOnline marks the user online unless they are already online with a
// live session. A user left online whose sessions all expired or were revoked
// can claim again. Returns ErrNotFound when the claim is refused or the user
// does not exist.
func (r *Repository) ClaimOnline(ctx context.Context, id string, now time.Time) error {
	now = now.UTC()
	return affected(r.db.ExecContext(ctx, `
		UPDATE users SET status = ?, updated_at = ?
		WHERE id = ?
		  AND (status = ? OR NOT EXISTS (
		      SELECT 1 FROM sessions
		      WHERE sessions.user_id = users.id
		        AND sessions.revoked_at IS NULL
		        AND sessions.expires_at > ?))`,
		models.StatusOnline, now, id, models.StatusOffline, now))
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id))
}

// SetResetCode stores a pending reset code hash and clears any prior verification.
func (r *Repository) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET reset_code_hash = ?, reset_code_expires_at = ?, reset_verified = 0, updated_at = ? WHERE id = ?`,
		codeHash, expiresAt.UTC(), time.Now().UTC(), id))
}

// ClearResetCode removes all reset state from a user.
func (r *Repository) ClearResetCode(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET reset_code_hash = NULL, reset_code_expires_at = NULL, reset_verified = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id))
}

// GetUserByResetCodeHash retrieves the user holding the given reset code hash.
func (r *Repository) GetUserByResetCodeHash(ctx context.Context, codeHash string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE reset_code_hash = ?`, codeHash); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// MarkResetVerified flags a pending reset as verified.
func (r *Repository) MarkResetVerified(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET reset_verified = 1, updated_at = ? WHERE id = ? AND reset_code_hash IS NOT NULL`,
		time.Now().UTC(), id))
}

// CompleteReset sets a new password hash and clears all reset state in one write.
func (r *Repository) CompleteReset(ctx context.Context, id, passwordHash string) error {
	return affected(r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, reset_code_hash = NULL, reset_code_expires_at = NULL,
		    reset_verified = 0, updated_at = ?
		WHERE id = ? AND reset_verified = 1`,
		passwordHash, time.Now().UTC(), id))
}
