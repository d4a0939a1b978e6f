package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscribe-backend-go/internal/models"
)

func TestNormalizeNotificationType(t *testing.T) {
	assert.Equal(t, "info", NormalizeNotificationType(""))
	assert.Equal(t, "info", NormalizeNotificationType("  "))
	assert.Equal(t, "success", NormalizeNotificationType("Success"))
	assert.Equal(t, "warning", NormalizeNotificationType("warning"))
	// the mobile client still sends the legacy "error" type
	assert.Equal(t, "alert", NormalizeNotificationType("error"))
	assert.Equal(t, "alert", NormalizeNotificationType("alert"))
	assert.Equal(t, "", NormalizeNotificationType("shout"))
}

func TestNormalizeAudience(t *testing.T) {
	assert.Equal(t, AudienceAll, NormalizeAudience(""))
	assert.Equal(t, AudienceAll, NormalizeAudience("ALL"))
	assert.Equal(t, AudienceStudents, NormalizeAudience("students"))
	assert.Equal(t, AudienceTeachers, NormalizeAudience(" Teachers "))
	assert.Equal(t, AudienceUser, NormalizeAudience("user"))
	assert.Equal(t, "", NormalizeAudience("everyone"))
}

func TestAudienceLabel(t *testing.T) {
	assert.Equal(t, "All Users", AudienceLabel(AudienceAll, nil))
	assert.Equal(t, "Students Only", AudienceLabel(AudienceStudents, nil))
	assert.Equal(t, "Teachers Only", AudienceLabel(AudienceTeachers, nil))
	assert.Equal(t, "User: a@b.com", AudienceLabel(AudienceUser, []string{"a@b.com"}))
	assert.Equal(t, "Specific Users", AudienceLabel(AudienceUser, []string{"a@b.com", "c@d.com"}))
}

func TestResolveAudienceRejectsUnknownSelector(t *testing.T) {
	// validation fires before any query, so no database is needed
	for _, audience := range []string{"bogus-audience", "everyone", ""} {
		_, err := ResolveAudience(nil, audience, nil)
		var svcErr ServiceError
		require.ErrorAs(t, err, &svcErr, "audience %q", audience)
		assert.Equal(t, 400, svcErr.Status)
	}
}

func TestCreateNotificationRejectsUnknownType(t *testing.T) {
	_, err := CreateNotification(nil, nil, CreateNotificationInput{
		Title:    "Update",
		Message:  "hello",
		Type:     "shout",
		Audience: "all",
	})
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
	assert.Contains(t, svcErr.Message, "Type must be")
}

func TestCreateNotificationRejectsUnknownAudience(t *testing.T) {
	_, err := CreateNotification(nil, nil, CreateNotificationInput{
		Title:    "Update",
		Message:  "hello",
		Type:     "info",
		Audience: "bogus-audience",
	})
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
	assert.Contains(t, svcErr.Message, "Audience must be")
}

func TestCreateNotificationNormalizesLegacyErrorType(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT id FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
	// the legacy "error" type must be stored as "alert"
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(sqlmock.AnyArg(), "Disk full", "act now", "alert", AudienceAll, 1,
			nil, sqlmock.AnyArg(), "sent", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	notification, err := CreateNotification(db, NewEventHub(), CreateNotificationInput{
		Title:     "Disk full",
		Message:   "act now",
		Type:      "ERROR",
		Audience:  "All",
		CreatedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "alert", notification.Type)
	assert.Equal(t, AudienceAll, notification.Audience)
	assert.Equal(t, "sent", notification.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliverNotificationIgnoresDuplicateRows(t *testing.T) {
	db, mock := newMockDB(t)

	// second delivery of the same notification hits the unique
	// (user_id, notification_id) conflict and affects zero rows
	mock.ExpectExec(`INSERT INTO user_notifications`).
		WithArgs(sqlmock.AnyArg(), "user-1", "notif-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	now := time.Now().UTC()
	notification := &models.Notification{ID: "notif-1", Title: "t", Message: "m", Type: "info", SentAt: &now}
	DeliverNotification(db, NewEventHub(), notification, []string{"user-1"})
	require.NoError(t, mock.ExpectationsWereMet())
}
