// internal/report/summary.go

// Package report emails the operator a per-batch summary. Entirely
// optional; with SES disabled the summary only appears in the logs.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/pipeline"
)

// SESService is the email channel contract, narrowed for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Config struct {
	Enabled   bool
	FromEmail string
	Recipient string
}

type Reporter struct {
	config *Config
	ses    SESService
	logger logger.Logger
}

func New(config *Config, sesClient SESService, log logger.Logger) *Reporter {
	return &Reporter{
		config: config,
		ses:    sesClient,
		logger: log.WithFields(map[string]interface{}{"component": "report"}),
	}
}

// SendSummary emails the batch outcome to the operator. Failures are
// logged and swallowed; a missed summary never fails the run.
func (r *Reporter) SendSummary(ctx context.Context, started time.Time, summary pipeline.Summary) {
	if !r.config.Enabled || r.ses == nil || r.config.Recipient == "" {
		return
	}

	subject := fmt.Sprintf("Clinic Scout batch summary: %d clinics, %d alerts",
		summary.Processed, summary.NotificationsSent)
	body := fmt.Sprintf(
		"Batch started: %s\nDuration: %s\n\nClinics processed: %d\nFetch skipped: %d\nClassification errors: %d\nStore writes skipped: %d\nStatus flips: %d\nNotifications sent: %d\n",
		started.Format(time.RFC3339), time.Since(started).Round(time.Second),
		summary.Processed, summary.FetchSkipped, summary.ClassifyErrors,
		summary.StoreSkipped, summary.StatusFlips, summary.NotificationsSent,
	)

	_, err := r.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{r.config.Recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(r.config.FromEmail),
	})
	if err != nil {
		r.logger.Error("summary email failed", map[string]interface{}{"error": err.Error()})
		return
	}
	r.logger.Info("summary email sent", map[string]interface{}{"recipient": r.config.Recipient})
}
