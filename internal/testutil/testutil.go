// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/database"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"codeberg.org/oliverandrich/jobboard/internal/repository"
	"codeberg.org/oliverandrich/jobboard/internal/services/email"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword satisfies the password rules and is the password of NewTestUser.
const TestPassword = "Secr3t!pass"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a confirmed, offline User account with TestPassword.
// The handle and recovery email are derived from email.
func NewTestUser(t *testing.T, repo *repository.Repository, emailAddr string) *models.User {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	local := strings.SplitN(emailAddr, "@", 2)[0]
	user := &models.User{
		ID:             uuid.NewString(),
		FirstName:      "test",
		LastName:       local,
		Handle:         "test" + local,
		Email:          emailAddr,
		RecoveryEmail:  "recovery." + emailAddr,
		MobileNumber:   "+1555" + uuid.NewString()[:7],
		DateOfBirth:    time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		PasswordHash:   string(hash),
		Role:           models.RoleUser,
		Status:         models.StatusOffline,
		EmailConfirmed: true,
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	return user
}

// Clock is a settable time source for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at a fixed UTC instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Mailer records sent messages. Addresses in Reject are reported as refused
// recipients, and a non-nil Err fails every send. OnSend, when set, runs
// before each message is recorded.
type Mailer struct {
	mu       sync.Mutex
	Messages []email.Message
	Reject   []string
	Err      error
	OnSend   func(ctx context.Context, msg email.Message)
}

// Send implements email.Mailer.
func (m *Mailer) Send(ctx context.Context, msg email.Message) (*email.Receipt, error) {
	if m.OnSend != nil {
		m.OnSend(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	receipt := &email.Receipt{MessageID: uuid.NewString()}
	for _, to := range msg.To {
		if slices.Contains(m.Reject, to) {
			receipt.Rejected = append(receipt.Rejected, to)
		}
	}
	m.Messages = append(m.Messages, msg)
	return receipt, nil
}

// Last returns the most recently sent message.
func (m *Mailer) Last(t *testing.T) email.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Messages, "no mail sent")
	return m.Messages[len(m.Messages)-1]
}

// Count returns the number of sent messages.
func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
