// internal/store/subscribers_test.go
package store

import (
	"context"
	"testing"

	"clinic-scout/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscriberStore(t *testing.T) (*SubscriberStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSubscriberStore(db, logger.NewTestLogger(t)), mock
}

func subscriberColumns() []string {
	return []string{"id", "email", "phone_number", "is_premium", "areas", "languages"}
}

func TestSubscriberStore_ListPremium(t *testing.T) {
	s, mock := newTestSubscriberStore(t)

	rows := sqlmock.NewRows(subscriberColumns()).
		AddRow("u1", "a@example.com", "+14165551111", true, `{Toronto}`, `{English}`).
		AddRow("u2", "b@example.com", "+14165552222", true, `{"Ontario Wide"}`, `{}`)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE is_premium").WillReturnRows(rows)

	subs, err := s.ListPremium(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "u1", subs[0].ID)
	assert.Equal(t, []string{"Toronto"}, subs[0].Areas)
	assert.Equal(t, []string{"Ontario Wide"}, subs[1].Areas)
	assert.True(t, subs[1].IsPremium)
}

func TestSubscriberStore_ListPremium_Empty(t *testing.T) {
	s, mock := newTestSubscriberStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE is_premium").
		WillReturnRows(sqlmock.NewRows(subscriberColumns()))

	subs, err := s.ListPremium(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriberStore_FindByEmail(t *testing.T) {
	s, mock := newTestSubscriberStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows(subscriberColumns()).
			AddRow("u1", "a@example.com", "+14165551111", false, `{Ottawa}`, `{French}`))

	sub, err := s.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "u1", sub.ID)
	assert.False(t, sub.IsPremium)
	assert.Equal(t, []string{"French"}, sub.Languages)
}

func TestSubscriberStore_FindByEmail_NotFound(t *testing.T) {
	s, mock := newTestSubscriberStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(subscriberColumns()))

	sub, err := s.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriberStore_UpgradeToPremium(t *testing.T) {
	s, mock := newTestSubscriberStore(t)

	mock.ExpectExec("UPDATE users SET").
		WithArgs("u1", sqlmock.AnyArg(), "5.00", "2025-03-14T09:30:00Z", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpgradeToPremium(context.Background(), "u1", "5.00", "2025-03-14T09:30:00Z", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
