// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	scouterrors "clinic-scout/internal/common/errors"
	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"
)

// NotificationLog is the append-only audit trail of dispatched messages.
type NotificationLog struct {
	db     *sql.DB
	logger logger.Logger
}

func NewNotificationLog(db *sql.DB, log logger.Logger) *NotificationLog {
	return &NotificationLog{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "notification-log"}),
	}
}

// Append writes one audit entry. The ID is assigned here when absent and
// sent_at is server-assigned. Entries are never mutated afterwards.
func (l *NotificationLog) Append(ctx context.Context, entry models.NotificationLogEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO notification_log (id, clinic_id, user_id, phone, message_sid, type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ClinicID, entry.UserID, entry.Phone, entry.MessageSID, entry.Type)
	if err != nil {
		return "", scouterrors.NewStoreUnavailableError("append notification log", err)
	}
	return entry.ID, nil
}

// CountForClinic reports how many entries exist for a clinic, used by
// operator tooling and tests.
func (l *NotificationLog) CountForClinic(ctx context.Context, clinicID string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notification_log WHERE clinic_id = $1`, clinicID).Scan(&n)
	if err != nil {
		return 0, scouterrors.NewStoreUnavailableError("count notifications", err)
	}
	return n, nil
}
