// internal/models/notification.go
package models

import "time"

// Notification types
const (
	NotificationTypeStatusFlip = "STATUS_FLIP_ALERT"
	NotificationTypeWelcome    = "WELCOME"
)

// NotificationLogEntry is a write-once audit record of a dispatched message.
// Entries are never mutated or deleted.
type NotificationLogEntry struct {
	ID         string    `json:"id"`
	ClinicID   string    `json:"clinicId,omitempty"`
	UserID     string    `json:"userId"`
	Phone      string    `json:"phone"`
	MessageSID string    `json:"messageSid,omitempty"`
	Type       string    `json:"type"`
	SentAt     time.Time `json:"sentAt"`
}
