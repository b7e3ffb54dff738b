// internal/models/subscriber.go
package models

import "time"

// SubscriberRecord is one registered user. Only premium subscribers with a
// phone number are candidates for SMS alerts.
type SubscriberRecord struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	IsPremium   bool   `json:"isPremium"`

	// Areas may include sentinel values meaning "anywhere in the
	// province", e.g. "Ontario Wide" or "All Locations". Empty Languages
	// means no language filter.
	Areas     []string `json:"areas,omitempty"`
	Languages []string `json:"languages,omitempty"`

	PremiumSince      *time.Time `json:"premiumSince,omitempty"`
	LastPaymentAmount string     `json:"lastPaymentAmount,omitempty"`
	LastPaymentDate   string     `json:"lastPaymentDate,omitempty"`
	IsSubscription    bool       `json:"isSubscription,omitempty"`
}
