// internal/store/notifications_test.go
package store

import (
	"context"
	"testing"

	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotificationLog(t *testing.T) (*NotificationLog, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNotificationLog(db, logger.NewTestLogger(t)), mock
}

func TestNotificationLog_Append_AssignsID(t *testing.T) {
	l, mock := newTestNotificationLog(t)

	mock.ExpectExec("INSERT INTO notification_log").
		WithArgs(sqlmock.AnyArg(), "clinic-1", "user-1", "+14165551111", "SM123", models.NotificationTypeStatusFlip).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := l.Append(context.Background(), models.NotificationLogEntry{
		ClinicID:   "clinic-1",
		UserID:     "user-1",
		Phone:      "+14165551111",
		MessageSID: "SM123",
		Type:       models.NotificationTypeStatusFlip,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationLog_Append_KeepsProvidedID(t *testing.T) {
	l, mock := newTestNotificationLog(t)

	mock.ExpectExec("INSERT INTO notification_log").
		WithArgs("fixed-id", "clinic-1", "user-1", "+14165551111", "LOG_ONLY", models.NotificationTypeWelcome).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := l.Append(context.Background(), models.NotificationLogEntry{
		ID:         "fixed-id",
		ClinicID:   "clinic-1",
		UserID:     "user-1",
		Phone:      "+14165551111",
		MessageSID: "LOG_ONLY",
		Type:       models.NotificationTypeWelcome,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestNotificationLog_CountForClinic(t *testing.T) {
	l, mock := newTestNotificationLog(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("clinic-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := l.CountForClinic(context.Background(), "clinic-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
