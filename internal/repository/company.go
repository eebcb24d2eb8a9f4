// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
	"github.com/vinovest/sqlx"
)

// CascadeResult counts the rows removed by DeleteUserCascade.
type CascadeResult struct {
	Applications int64
	Jobs         int64
	Companies    int64
	Sessions     int64
	Codes        int64
}

// CreateCompany inserts a company owned by a CompanyHR account.
func (r *Repository) CreateCompany(ctx context.Context, c *models.Company) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO companies (id, name, company_email, company_hr, created_at)
		 VALUES (:id, :name, :company_email, :company_hr, :created_at)`, c)
	return wrapError(err)
}

// CreateJob inserts a job posting.
func (r *Repository) CreateJob(ctx context.Context, j *models.Job) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO jobs (id, title, company_id, added_by, created_at)
		 VALUES (:id, :title, :company_id, :added_by, :created_at)`, j)
	return wrapError(err)
}

// CreateApplication inserts a job application.
func (r *Repository) CreateApplication(ctx context.Context, a *models.Application) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO applications (id, job_id, user_id, created_at)
		 VALUES (:id, :job_id, :user_id, :created_at)`, a)
	return wrapError(err)
}

// DeleteUserCascade removes a user together with the companies they run, the
// jobs they posted or that belong to those companies, every application
// touching those jobs or filed by the user, their sessions and their pending
// one-time codes. All deletes share one transaction.
func (r *Repository) DeleteUserCascade(ctx context.Context, userID string) (*CascadeResult, error) {
	result := &CascadeResult{}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var email string
		if err := tx.GetContext(ctx, &email, `SELECT email FROM users WHERE id = ?`, userID); err != nil {
			return wrapError(err)
		}

		steps := []struct {
			name  string
			count *int64
			query string
			args  []any
		}{
			{"applications", &result.Applications, `
				DELETE FROM applications
				WHERE user_id = ?
				   OR job_id IN (
				       SELECT id FROM jobs
				       WHERE added_by = ?
				          OR company_id IN (SELECT id FROM companies WHERE company_hr = ?))`,
				[]any{userID, userID, userID}},
			{"jobs", &result.Jobs, `
				DELETE FROM jobs
				WHERE added_by = ?
				   OR company_id IN (SELECT id FROM companies WHERE company_hr = ?)`,
				[]any{userID, userID}},
			{"companies", &result.Companies, `DELETE FROM companies WHERE company_hr = ?`, []any{userID}},
			{"sessions", &result.Sessions, `DELETE FROM sessions WHERE user_id = ?`, []any{userID}},
			{"one-time codes", &result.Codes, `DELETE FROM one_time_codes WHERE email = ?`, []any{email}},
		}

		for _, step := range steps {
			res, err := tx.ExecContext(ctx, step.query, step.args...)
			if err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
			if *step.count, err = res.RowsAffected(); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
