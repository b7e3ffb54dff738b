// internal/pipeline/pipeline.go

// Package pipeline drives one batch run: each clinic is processed
// end-to-end (fetch, classify, persist, maybe notify) before the next one
// starts. Failures are contained per clinic; a slow or broken site never
// aborts the batch.
package pipeline

import (
	"context"
	"strings"
	"time"

	"clinic-scout/internal/classifier"
	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/common/metrics"
	"clinic-scout/internal/dispatcher"
	"clinic-scout/internal/matcher"
	"clinic-scout/internal/models"
	"clinic-scout/internal/seed"
	"clinic-scout/internal/store"
	"clinic-scout/internal/transition"
)

// TextExtractor turns a clinic root URL into one context blob.
type TextExtractor interface {
	Extract(ctx context.Context, rootURL string) (string, error)
}

// StatusClassifier produces a structured judgment from page text.
type StatusClassifier interface {
	Classify(ctx context.Context, text string) classifier.Result
}

// ClinicStates is the clinic persistence contract.
type ClinicStates interface {
	Upsert(ctx context.Context, clinicID string, fields store.ClinicFields) (*models.Status, error)
}

// Subscribers lists alert candidates.
type Subscribers interface {
	ListPremium(ctx context.Context) ([]models.SubscriberRecord, error)
}

// AlertDispatcher fans one alert out to matched subscribers.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert dispatcher.Alert, subscribers []models.SubscriberRecord) int
}

// Preferences is the optional pre-notification gate, orthogonal to
// per-subscriber matching. Empty slices mean no filter.
type Preferences struct {
	Languages []string
	Areas     []string
}

// Summary is the per-batch outcome an operator sees.
type Summary struct {
	Processed         int
	FetchSkipped      int
	ClassifyErrors    int
	StoreSkipped      int
	StatusFlips       int
	NotificationsSent int
}

type Pipeline struct {
	extractor   TextExtractor
	classifier  StatusClassifier
	clinics     ClinicStates
	subscribers Subscribers
	dispatcher  AlertDispatcher
	prefs       Preferences
	logger      logger.Logger
}

func New(
	extractor TextExtractor,
	statusClassifier StatusClassifier,
	clinics ClinicStates,
	subscribers Subscribers,
	alertDispatcher AlertDispatcher,
	prefs Preferences,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		classifier:  statusClassifier,
		clinics:     clinics,
		subscribers: subscribers,
		dispatcher:  alertDispatcher,
		prefs:       prefs,
		logger:      log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Run processes the seed targets in order and returns the batch summary.
// Only context cancellation stops the batch early.
func (p *Pipeline) Run(ctx context.Context, targets []seed.Target) Summary {
	var summary Summary

	for _, target := range targets {
		if ctx.Err() != nil {
			p.logger.Warn("batch cancelled", map[string]interface{}{
				"remaining": len(targets) - summary.Processed,
			})
			break
		}
		p.processClinic(ctx, target, &summary)
		summary.Processed++
	}

	p.logger.Info("batch complete", map[string]interface{}{
		"processed":     summary.Processed,
		"fetchSkipped":  summary.FetchSkipped,
		"classifyError": summary.ClassifyErrors,
		"storeSkipped":  summary.StoreSkipped,
		"statusFlips":   summary.StatusFlips,
		"sent":          summary.NotificationsSent,
	})
	return summary
}

func (p *Pipeline) processClinic(ctx context.Context, target seed.Target, summary *Summary) {
	started := time.Now()
	defer func() {
		metrics.ClinicProcessingDuration.Observe(time.Since(started).Seconds())
	}()

	log := p.logger.WithFields(map[string]interface{}{"clinicId": target.ID, "url": target.URL})

	text, err := p.extractor.Extract(ctx, target.URL)
	if err != nil {
		// Un-scrapable this cycle: no state mutation, no notification.
		metrics.ClinicsProcessed.WithLabelValues("fetch_skipped").Inc()
		summary.FetchSkipped++
		log.Warn("fetch failed, clinic skipped", map[string]interface{}{"error": err.Error()})
		return
	}

	result := p.classifier.Classify(ctx, text)
	if result.Status == models.StatusError {
		metrics.ClinicsProcessed.WithLabelValues("error").Inc()
		summary.ClassifyErrors++
	} else {
		metrics.ClinicsProcessed.WithLabelValues("classified").Inc()
	}

	fields := fieldsFromResult(target, result)
	prior, err := p.clinics.Upsert(ctx, target.ID, fields)
	if err != nil {
		// Persistence degraded to a skip; without a recorded status no
		// transition can be evaluated.
		summary.StoreSkipped++
		log.Error("store write skipped", map[string]interface{}{"error": err.Error()})
		return
	}

	log.Info("clinic classified", map[string]interface{}{
		"status": string(result.Status),
		"prior":  priorLabel(prior),
	})

	if result.Status == models.StatusError {
		return
	}
	if !transition.IsNotifyWorthy(prior, result.Status) {
		return
	}

	metrics.StatusFlips.Inc()
	summary.StatusFlips++

	district := models.FieldUnknown
	if fields.District != nil {
		district = *fields.District
	}
	if !p.passesPreferences(district, result.Languages) {
		log.Info("status flip suppressed by preference gate", map[string]interface{}{
			"district": district,
		})
		return
	}

	subs, err := p.subscribers.ListPremium(ctx)
	if err != nil {
		log.Error("subscriber scan failed, no alerts this cycle", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	matched := matcher.Match(subs, district, result.Languages)
	alert := dispatcher.Alert{
		ClinicID:   target.ID,
		ClinicName: result.ClinicName,
		ClinicURL:  target.URL,
		District:   district,
		OldStatus:  prior,
	}
	summary.NotificationsSent += p.dispatcher.Dispatch(ctx, alert, matched)
}

// fieldsFromResult builds the merge-upsert payload. Unknown values are
// omitted so prior known values survive the merge, and an ERROR cycle only
// records the status and its reason. The seed row's city and province
// override what the classifier guessed, matching how the seed list is
// curated.
func fieldsFromResult(target seed.Target, result classifier.Result) store.ClinicFields {
	fields := store.ClinicFields{
		URL:    target.URL,
		Status: result.Status,
		Reason: strPtr(result.Reason),
	}
	if result.Status != models.StatusError {
		fields.Name = knownPtr(result.ClinicName)
		fields.Address = knownPtr(result.Address)
		fields.Phone = knownPtr(result.Phone)
		fields.Languages = result.Languages
		fields.Vacancy = knownPtr(result.Vacancy)
		fields.Evidence = knownPtr(result.Evidence)
		fields.District = knownPtr(result.District)
	}
	if target.City != "" {
		fields.District = strPtr(target.City)
	}
	if target.Province != "" {
		fields.Province = strPtr(target.Province)
	}
	return fields
}

// passesPreferences applies the optional operator-level filter before any
// subscriber matching happens. Unknown clinic languages pass the language
// filter (permissive when unknown, strict when known).
func (p *Pipeline) passesPreferences(district string, clinicLanguages []string) bool {
	if len(p.prefs.Languages) > 0 && known(clinicLanguages) {
		if !anySubstring(p.prefs.Languages, clinicLanguages) {
			return false
		}
	}
	if len(p.prefs.Areas) > 0 {
		d := strings.ToLower(district)
		found := false
		for _, area := range p.prefs.Areas {
			if strings.Contains(d, strings.ToLower(strings.TrimSpace(area))) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func known(langs []string) bool {
	return len(langs) > 0 && !(len(langs) == 1 && langs[0] == models.DefaultLanguage)
}

func anySubstring(wanted, have []string) bool {
	for _, w := range wanted {
		lw := strings.ToLower(strings.TrimSpace(w))
		if lw == "" {
			continue
		}
		for _, h := range have {
			if strings.Contains(strings.ToLower(h), lw) {
				return true
			}
		}
	}
	return false
}

func priorLabel(prior *models.Status) string {
	if prior == nil {
		return "NEW"
	}
	return string(*prior)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// knownPtr omits empty and placeholder values from a merge write.
func knownPtr(s string) *string {
	if s == "" || s == models.FieldUnknown {
		return nil
	}
	return &s
}
