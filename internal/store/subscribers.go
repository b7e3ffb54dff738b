// internal/store/subscribers.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	scouterrors "clinic-scout/internal/common/errors"
	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"
)

// SubscriberStore reads and updates user records. Premium status flips are
// driven by the payment webhook; everything else is user-owned data.
type SubscriberStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSubscriberStore(db *sql.DB, log logger.Logger) *SubscriberStore {
	return &SubscriberStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "subscriber-store"}),
	}
}

// ListPremium returns all subscribers with isPremium true. Iteration order
// is store-native and carries no guarantee.
func (s *SubscriberStore) ListPremium(ctx context.Context) ([]models.SubscriberRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, phone_number, is_premium, areas, languages
		FROM users WHERE is_premium = TRUE`)
	if err != nil {
		return nil, scouterrors.NewStoreUnavailableError("list premium subscribers", err)
	}
	defer rows.Close()

	var subs []models.SubscriberRecord
	for rows.Next() {
		var sub models.SubscriberRecord
		var areas, langs pq.StringArray
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.PhoneNumber, &sub.IsPremium, &areas, &langs); err != nil {
			return nil, scouterrors.NewStoreUnavailableError("scan subscriber", err)
		}
		sub.Areas = []string(areas)
		sub.Languages = []string(langs)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// FindByEmail returns the subscriber registered with the given email, or
// nil when none exists.
func (s *SubscriberStore) FindByEmail(ctx context.Context, email string) (*models.SubscriberRecord, error) {
	var sub models.SubscriberRecord
	var areas, langs pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, phone_number, is_premium, areas, languages
		FROM users WHERE email = $1 LIMIT 1`, email).
		Scan(&sub.ID, &sub.Email, &sub.PhoneNumber, &sub.IsPremium, &areas, &langs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, scouterrors.NewStoreUnavailableError("find subscriber by email", err)
	}
	sub.Areas = []string(areas)
	sub.Languages = []string(langs)
	return &sub, nil
}

// UpgradeToPremium flips isPremium on confirmed payment and records the
// payment metadata.
func (s *SubscriberStore) UpgradeToPremium(ctx context.Context, userID, amount, paymentDate string, isSubscription bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			is_premium          = TRUE,
			premium_since       = COALESCE(premium_since, $2),
			last_payment_amount = $3,
			last_payment_date   = $4,
			is_subscription     = $5
		WHERE id = $1`,
		userID, time.Now().UTC(), amount, paymentDate, isSubscription)
	if err != nil {
		return scouterrors.NewStoreUnavailableError(fmt.Sprintf("upgrade subscriber %s", userID), err)
	}
	return nil
}
