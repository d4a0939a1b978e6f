package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscribe-backend-go/internal/services"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })
	return &Server{
		DB: db,
		Tokens: services.TokenService{
			Secret:   []byte("test-secret"),
			Issuer:   "smartscribe",
			UserTTL:  168 * time.Hour,
			AdminTTL: 2 * time.Hour,
		},
		Hub:               services.NewEventHub(),
		AdminLoginLimiter: services.NewFixedWindowLimiter(15*time.Minute, 5),
	}, mock
}

func userRows(passwordHash string, isAdmin bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "is_admin",
		"transcriptions", "image_path", "status", "created_at", "updated_at",
	}).AddRow("user-1", "Ana", "user@example.com", passwordHash, "student", isAdmin,
		0, nil, "ACTIVE", now, now)
}

func failedAdminAttempts(email string, count int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "ip_address", "user_agent", "success", "attempt_type", "attempted_at"})
	for i := 0; i < count; i++ {
		rows.AddRow(fmt.Sprintf("attempt-%d", i), email, "198.51.100.7", nil, false, "admin", time.Now().UTC())
	}
	return rows
}

// A pile of failed admin attempts must not lock the regular user login.
func TestLoginUnaffectedByAdminLockout(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.MatchExpectationsInOrder(false)

	hash, err := srv.Tokens.HashPassword("Str0ng!pass")
	require.NoError(t, err)

	// staged but expected to stay unused: the user login path must
	// never read the admin lockout trail
	mock.ExpectQuery(`FROM login_attempts`).
		WillReturnRows(failedAdminAttempts("user@example.com", 5))
	mock.ExpectQuery(`FROM users`).
		WillReturnRows(userRows(hash, false))
	mock.ExpectExec(`INSERT INTO login_attempts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_activities`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"user@example.com","password":"Str0ng!pass"}`))
	recorder := httptest.NewRecorder()
	srv.Login(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Contains(t, recorder.Body.String(), `"token"`)
	// the lockout read is still pending, proving it was never issued
	assert.Error(t, mock.ExpectationsWereMet())
}

// The same trail does lock the admin login.
func TestAdminLoginLockedAfterRepeatedFailures(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(`FROM login_attempts`).
		WillReturnRows(failedAdminAttempts("admin@example.com", 5))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/admin/login",
		strings.NewReader(`{"email":"admin@example.com","password":"whatever"}`))
	recorder := httptest.NewRecorder()
	srv.AdminLogin(recorder, req)

	assert.Equal(t, http.StatusLocked, recorder.Code, recorder.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}
