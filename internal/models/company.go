// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Company is owned by a CompanyHR account.
type Company struct { //nolint:govet // fieldalignment: readability over optimization
	ID           string    `db:"id" json:"_id"`
	Name         string    `db:"name" json:"companyName"`
	CompanyEmail string    `db:"company_email" json:"companyEmail"`
	CompanyHR    string    `db:"company_hr" json:"companyHR"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// Job is a posting added by a CompanyHR account.
type Job struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string    `db:"id" json:"_id"`
	Title     string    `db:"title" json:"jobTitle"`
	CompanyID string    `db:"company_id" json:"companyId"`
	AddedBy   string    `db:"added_by" json:"addedBy"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Application links an applicant to a job.
type Application struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string    `db:"id" json:"_id"`
	JobID     string    `db:"job_id" json:"jobId"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}
