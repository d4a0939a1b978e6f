package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestCreateAdminSessionSupersedesBeforeInsert(t *testing.T) {
	db, mock := newMockDB(t)

	// prior sessions must be deactivated before the new row appears,
	// inside the same transaction
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE admin_sessions SET is_active = FALSE`).
		WithArgs("admin-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO admin_sessions`).
		WithArgs(sqlmock.AnyArg(), "admin-1", "token-new", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := CreateAdminSession(db, "admin-1", "token-new", "203.0.113.9", "cli", time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAdminSessionRollsBackWhenDeactivateFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE admin_sessions SET is_active = FALSE`).
		WithArgs("admin-1").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := CreateAdminSession(db, "admin-1", "token-new", "", "", time.Now().Add(2*time.Hour))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshAdminSessionRejectsUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE admin_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := RefreshAdminSession(db, "admin-1", "stale-token", "new-token", time.Now().Add(2*time.Hour))
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 401, svcErr.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
