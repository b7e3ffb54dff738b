// internal/dispatcher/dispatcher_test.go
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
	mu          sync.Mutex
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	m.calls = append(m.calls, params)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func (m *MockSNSService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type MockAuditLog struct {
	AppendFunc func(ctx context.Context, entry models.NotificationLogEntry) (string, error)
	entries    []models.NotificationLogEntry
}

func (m *MockAuditLog) Append(ctx context.Context, entry models.NotificationLogEntry) (string, error) {
	m.entries = append(m.entries, entry)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	return "entry-1", nil
}

func newTestDispatcher(t *testing.T, config *Config, snsClient SNSService, audit AuditLog, guard DedupeGuard) *Dispatcher {
	if config == nil {
		config = &Config{SMSEnabled: true}
	}
	return New(config, snsClient, audit, guard, logger.NewTestLogger(t))
}

func testAlert(old *models.Status) Alert {
	return Alert{
		ClinicID:   "example_com",
		ClinicName: "Maple Clinic",
		ClinicURL:  "https://example.com",
		District:   "Toronto",
		OldStatus:  old,
	}
}

func subscriber(id, phone string) models.SubscriberRecord {
	return models.SubscriberRecord{ID: id, PhoneNumber: phone, IsPremium: true}
}

func statusPtr(s models.Status) *models.Status {
	return &s
}

// redisGuard wraps a miniredis-backed client in the guard contract.
type redisGuard struct {
	client *redis.Client
}

func (g *redisGuard) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return g.client.SetNX(ctx, key, value, expiration).Result()
}

func (g *redisGuard) Del(ctx context.Context, keys ...string) (int64, error) {
	return g.client.Del(ctx, keys...).Result()
}

func newMiniredisGuard(t *testing.T) *redisGuard {
	mr := miniredis.RunT(t)
	return &redisGuard{client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

// ==========================
// Body Tests
// ==========================

func TestAlert_Body(t *testing.T) {
	tests := []struct {
		name     string
		old      *models.Status
		expected string
	}{
		{
			name:     "known prior status",
			old:      statusPtr(models.StatusClosed),
			expected: "🚨 CLINIC NOW OPEN! (CLOSED → OPEN) 🚨\nMaple Clinic\nToronto\nhttps://example.com",
		},
		{
			name:     "new clinic",
			old:      nil,
			expected: "🚨 CLINIC NOW OPEN! (NEW → OPEN) 🚨\nMaple Clinic\nToronto\nhttps://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, testAlert(tt.old).Body())
		})
	}
}

// ==========================
// Dispatch Tests
// ==========================

func TestDispatch_SendsToAllSubscribers(t *testing.T) {
	snsMock := &MockSNSService{}
	audit := &MockAuditLog{}
	d := newTestDispatcher(t, nil, snsMock, audit, nil)

	sent := d.Dispatch(context.Background(), testAlert(statusPtr(models.StatusClosed)), []models.SubscriberRecord{
		subscriber("u1", "+14165551111"),
		subscriber("u2", "+14165552222"),
	})

	assert.Equal(t, 2, sent)
	assert.Equal(t, 2, snsMock.CallCount())
	require.Len(t, audit.entries, 2)
	assert.Equal(t, models.NotificationTypeStatusFlip, audit.entries[0].Type)
	assert.Equal(t, "example_com", audit.entries[0].ClinicID)
}

func TestDispatch_OneFailureDoesNotStopOthers(t *testing.T) {
	snsMock := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			if aws.ToString(params.PhoneNumber) == "+14165551111" {
				return nil, errors.New("throttled")
			}
			return &sns.PublishOutput{MessageId: aws.String("msg-ok")}, nil
		},
	}
	audit := &MockAuditLog{}
	d := newTestDispatcher(t, nil, snsMock, audit, nil)

	sent := d.Dispatch(context.Background(), testAlert(nil), []models.SubscriberRecord{
		subscriber("u1", "+14165551111"),
		subscriber("u2", "+14165552222"),
	})

	assert.Equal(t, 1, sent)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "u2", audit.entries[0].UserID)
}

func TestDispatch_SkipsSubscribersWithoutPhone(t *testing.T) {
	snsMock := &MockSNSService{}
	d := newTestDispatcher(t, nil, snsMock, &MockAuditLog{}, nil)

	sent := d.Dispatch(context.Background(), testAlert(nil), []models.SubscriberRecord{
		subscriber("u1", ""),
		subscriber("u2", "+14165552222"),
	})

	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, snsMock.CallCount())
}

func TestDispatch_EmptyMatchSet(t *testing.T) {
	snsMock := &MockSNSService{}
	d := newTestDispatcher(t, nil, snsMock, &MockAuditLog{}, nil)

	sent := d.Dispatch(context.Background(), testAlert(nil), nil)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, snsMock.CallCount())
}

func TestDispatch_DedupeSuppressesSecondRun(t *testing.T) {
	guard := newMiniredisGuard(t)
	snsMock := &MockSNSService{}
	d := newTestDispatcher(t, nil, snsMock, &MockAuditLog{}, guard)

	subs := []models.SubscriberRecord{subscriber("u1", "+14165551111")}
	alert := testAlert(statusPtr(models.StatusWaitlist))

	assert.Equal(t, 1, d.Dispatch(context.Background(), alert, subs))
	assert.Equal(t, 0, d.Dispatch(context.Background(), alert, subs))
	assert.Equal(t, 1, snsMock.CallCount())
}

func TestDispatch_FailedSendIsRetriedByNextRun(t *testing.T) {
	guard := newMiniredisGuard(t)
	subs := []models.SubscriberRecord{subscriber("u1", "+14165551111")}
	alert := testAlert(statusPtr(models.StatusClosed))

	// First run: the channel is down, the send fails.
	brokenSNS := &MockSNSService{
		PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("service unavailable")
		},
	}
	d := newTestDispatcher(t, nil, brokenSNS, &MockAuditLog{}, guard)
	assert.Equal(t, 0, d.Dispatch(context.Background(), alert, subs))

	// Next run with the channel restored: the failed send must not have
	// burned the guard slot, so the subscriber still gets the alert.
	workingSNS := &MockSNSService{}
	d = newTestDispatcher(t, nil, workingSNS, &MockAuditLog{}, guard)
	assert.Equal(t, 1, d.Dispatch(context.Background(), alert, subs))
	assert.Equal(t, 1, workingSNS.CallCount())

	// A third run is a true duplicate and stays suppressed.
	assert.Equal(t, 0, d.Dispatch(context.Background(), alert, subs))
	assert.Equal(t, 1, workingSNS.CallCount())
}

func TestDispatch_GuardErrorDoesNotBlock(t *testing.T) {
	mr := miniredis.RunT(t)
	guard := &redisGuard{client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	mr.Close()

	snsMock := &MockSNSService{}
	d := newTestDispatcher(t, nil, snsMock, &MockAuditLog{}, guard)

	sent := d.Dispatch(context.Background(), testAlert(nil), []models.SubscriberRecord{
		subscriber("u1", "+14165551111"),
	})
	assert.Equal(t, 1, sent)
}

// ==========================
// Send Tests
// ==========================

func TestSend_LogOnlyWhenDisabled(t *testing.T) {
	snsMock := &MockSNSService{}
	audit := &MockAuditLog{}
	d := newTestDispatcher(t, &Config{SMSEnabled: false}, snsMock, audit, nil)

	sid, err := d.Send(context.Background(), models.NotificationTypeWelcome, "", "u1", "+14165551111", "hello")
	require.NoError(t, err)
	assert.Equal(t, "LOG_ONLY", sid)
	assert.Equal(t, 0, snsMock.CallCount())
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "LOG_ONLY", audit.entries[0].MessageSID)
}

func TestSend_SetsSenderID(t *testing.T) {
	snsMock := &MockSNSService{}
	d := newTestDispatcher(t, &Config{SMSEnabled: true, SenderID: "CLINICSCOUT"}, snsMock, &MockAuditLog{}, nil)

	_, err := d.Send(context.Background(), models.NotificationTypeStatusFlip, "c1", "u1", "+14165551111", "body")
	require.NoError(t, err)

	require.Equal(t, 1, snsMock.CallCount())
	attr, ok := snsMock.calls[0].MessageAttributes["AWS.SNS.SMS.SenderID"]
	require.True(t, ok)
	assert.Equal(t, "CLINICSCOUT", aws.ToString(attr.StringValue))
}

func TestSend_UnusablePhoneIsRejected(t *testing.T) {
	snsMock := &MockSNSService{}
	d := newTestDispatcher(t, nil, snsMock, &MockAuditLog{}, nil)

	_, err := d.Send(context.Background(), models.NotificationTypeStatusFlip, "c1", "u1", "555-12", "body")
	assert.Error(t, err)
	assert.Equal(t, 0, snsMock.CallCount())
}

func TestSend_NormalizesTenDigitPhone(t *testing.T) {
	snsMock := &MockSNSService{}
	audit := &MockAuditLog{}
	d := newTestDispatcher(t, nil, snsMock, audit, nil)

	_, err := d.Send(context.Background(), models.NotificationTypeStatusFlip, "c1", "u1", "(416) 555-1234", "body")
	require.NoError(t, err)
	require.Equal(t, 1, snsMock.CallCount())
	assert.Equal(t, "+14165551234", aws.ToString(snsMock.calls[0].PhoneNumber))
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "+14165551234", audit.entries[0].Phone)
}

func TestSend_AuditFailureIsNotFatal(t *testing.T) {
	audit := &MockAuditLog{
		AppendFunc: func(context.Context, models.NotificationLogEntry) (string, error) {
			return "", fmt.Errorf("log table unavailable")
		},
	}
	d := newTestDispatcher(t, nil, &MockSNSService{}, audit, nil)

	sid, err := d.Send(context.Background(), models.NotificationTypeStatusFlip, "c1", "u1", "+14165551111", "body")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", sid)
}
