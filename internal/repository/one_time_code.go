// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
	"github.com/vinovest/sqlx"
)

// ReplaceOneTimeCode stores a new code for an email, dropping expired codes
// and any earlier code issued to the same email.
func (r *Repository) ReplaceOneTimeCode(ctx context.Context, code *models.OneTimeCode) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at <= ?`, code.CreatedAt.UTC()); err != nil {
			return wrapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM one_time_codes WHERE email = ?`, code.Email); err != nil {
			return wrapError(err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO one_time_codes (email, code_hash, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			code.Email, code.CodeHash, code.CreatedAt.UTC(), code.ExpiresAt.UTC())
		if err != nil {
			return wrapError(err)
		}
		code.ID, err = res.LastInsertId()
		return err
	})
}

// ConsumeOneTimeCode deletes the code with the given hash and returns it.
// The lookup and delete are one statement, so a code is consumed at most once.
func (r *Repository) ConsumeOneTimeCode(ctx context.Context, codeHash string) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	err := r.db.GetContext(ctx, &code,
		`DELETE FROM one_time_codes WHERE code_hash = ? RETURNING id, email, code_hash, created_at, expires_at`,
		codeHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &code, nil
}

// DeleteExpiredOneTimeCodes deletes codes that expired before now.
func (r *Repository) DeleteExpiredOneTimeCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, wrapError(err)
	}
	return res.RowsAffected()
}
