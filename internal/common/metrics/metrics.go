// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClinicsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_clinics_processed_total",
			Help: "Total number of clinics processed per batch outcome",
		},
		[]string{"outcome"}, // classified, fetch_skipped, error
	)

	StatusFlips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_status_flips_total",
			Help: "Total number of notify-worthy transitions detected",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_notifications_sent_total",
			Help: "Total number of messages dispatched per type",
		},
		[]string{"type"},
	)

	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_notifications_failed_total",
			Help: "Total number of per-subscriber send failures",
		},
	)

	ClinicProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "scout_clinic_processing_duration_seconds",
			Help: "End-to-end processing duration per clinic",
		},
	)
)
