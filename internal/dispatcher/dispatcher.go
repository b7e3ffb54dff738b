// internal/dispatcher/dispatcher.go

// Package dispatcher fans an open-clinic alert out to matched subscribers
// over SMS, one message per subscriber, tolerating per-subscriber failures.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	scouterrors "clinic-scout/internal/common/errors"
	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/common/metrics"
	"clinic-scout/internal/models"
	"clinic-scout/internal/phone"
)

// SNSService is the message channel contract, narrowed for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AuditLog records each successful send.
type AuditLog interface {
	Append(ctx context.Context, entry models.NotificationLogEntry) (string, error)
}

// DedupeGuard suppresses duplicate alerts when a batch is re-run within
// the guard window. A nil guard disables suppression. A reservation taken
// for a send that then fails must be released, so the next batch run can
// retry the subscriber.
type DedupeGuard interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// dedupeTTL is how long a clinic/subscriber pair stays suppressed.
const dedupeTTL = 24 * time.Hour

type Config struct {
	SMSEnabled bool
	SenderID   string
}

// Alert describes one notify-worthy status flip.
type Alert struct {
	ClinicID   string
	ClinicName string
	ClinicURL  string
	District   string
	// OldStatus is nil for a clinic never recorded before.
	OldStatus *models.Status
}

// Body renders the subscriber-facing SMS text with the status-transition
// annotation, "(NEW → OPEN)" for a brand-new clinic.
func (a Alert) Body() string {
	from := "NEW"
	if a.OldStatus != nil {
		from = string(*a.OldStatus)
	}
	return fmt.Sprintf("🚨 CLINIC NOW OPEN! (%s → OPEN) 🚨\n%s\n%s\n%s",
		from, a.ClinicName, a.District, a.ClinicURL)
}

type Dispatcher struct {
	config   *Config
	sns      SNSService
	auditLog AuditLog
	guard    DedupeGuard
	logger   logger.Logger
}

func New(config *Config, snsClient SNSService, auditLog AuditLog, guard DedupeGuard, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		config:   config,
		sns:      snsClient,
		auditLog: auditLog,
		guard:    guard,
		logger:   log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Dispatch sends the alert to every matched subscriber and returns the
// count of successful sends. Zero sends for an empty match set is a normal
// outcome. A failed send to one subscriber never stops the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert, subscribers []models.SubscriberRecord) int {
	body := alert.Body()
	sent := 0

	for _, sub := range subscribers {
		if sub.PhoneNumber == "" {
			continue
		}

		if d.alreadyAlerted(ctx, alert.ClinicID, sub.ID) {
			d.logger.Info("duplicate alert suppressed", map[string]interface{}{
				"clinicId": alert.ClinicID, "userId": sub.ID,
			})
			continue
		}

		_, err := d.Send(ctx, models.NotificationTypeStatusFlip, alert.ClinicID, sub.ID, sub.PhoneNumber, body)
		if err != nil {
			// Give the reservation back so the next batch run retries
			// this subscriber.
			d.releaseAlert(ctx, alert.ClinicID, sub.ID)
			metrics.NotificationsFailed.Inc()
			d.logger.Error("subscriber send failed", map[string]interface{}{
				"clinicId": alert.ClinicID,
				"userId":   sub.ID,
				"phone":    sub.PhoneNumber,
				"error":    err.Error(),
			})
			continue
		}
		sent++
	}

	d.logger.Info("alert batch dispatched", map[string]interface{}{
		"clinicId": alert.ClinicID,
		"matched":  len(subscribers),
		"sent":     sent,
	})
	return sent
}

// Send normalizes the phone number, delivers one message and appends the
// audit entry. With the channel disabled it degrades to log-only mode,
// which still counts as a send for bookkeeping.
func (d *Dispatcher) Send(ctx context.Context, entryType, clinicID, userID, rawPhone, body string) (string, error) {
	phoneNumber := phone.FormatE164(rawPhone)
	if phoneNumber == "" {
		return "", scouterrors.NewChannelSendFailedError(rawPhone, fmt.Errorf("unusable phone number"))
	}

	messageSID := "LOG_ONLY"

	if d.config.SMSEnabled && d.sns != nil {
		input := &sns.PublishInput{
			PhoneNumber: aws.String(phoneNumber),
			Message:     aws.String(body),
		}
		if d.config.SenderID != "" {
			input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
				"AWS.SNS.SMS.SenderID": {
					DataType:    aws.String("String"),
					StringValue: aws.String(d.config.SenderID),
				},
			}
		}
		out, err := d.sns.Publish(ctx, input)
		if err != nil {
			return "", scouterrors.NewChannelSendFailedError(phoneNumber, err)
		}
		messageSID = aws.ToString(out.MessageId)
	} else {
		d.logger.Info("channel disabled, log-only send", map[string]interface{}{
			"phone": phoneNumber, "body": body,
		})
	}

	if _, err := d.auditLog.Append(ctx, models.NotificationLogEntry{
		ClinicID:   clinicID,
		UserID:     userID,
		Phone:      phoneNumber,
		MessageSID: messageSID,
		Type:       entryType,
	}); err != nil {
		// The message went out; a failed audit write is logged, not fatal.
		d.logger.Error("audit log append failed", map[string]interface{}{
			"clinicId": clinicID, "userId": userID, "error": err.Error(),
		})
	}

	metrics.NotificationsSent.WithLabelValues(entryType).Inc()
	return messageSID, nil
}

// alreadyAlerted reserves the guard slot for this clinic/subscriber pair.
// Guard errors degrade to "not alerted" so a Redis outage never blocks
// notifications.
func (d *Dispatcher) alreadyAlerted(ctx context.Context, clinicID, userID string) bool {
	if d.guard == nil {
		return false
	}
	set, err := d.guard.SetNX(ctx, alertKey(clinicID, userID), 1, dedupeTTL)
	if err != nil {
		d.logger.Warn("dedupe guard unavailable", map[string]interface{}{"error": err.Error()})
		return false
	}
	return !set
}

// releaseAlert frees a reservation taken for a send that failed. A failed
// release only shortens retries to the key TTL, so it is logged, not fatal.
func (d *Dispatcher) releaseAlert(ctx context.Context, clinicID, userID string) {
	if d.guard == nil {
		return
	}
	if _, err := d.guard.Del(ctx, alertKey(clinicID, userID)); err != nil {
		d.logger.Warn("dedupe release failed", map[string]interface{}{
			"clinicId": clinicID, "userId": userID, "error": err.Error(),
		})
	}
}

func alertKey(clinicID, userID string) string {
	return fmt.Sprintf("alert:%s:%s", clinicID, userID)
}
