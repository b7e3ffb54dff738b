// internal/models/clinic.go
package models

import (
	"strings"
	"time"
)

// Status is the classified patient-acceptance state of a clinic.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusWaitlist  Status = "WAITLIST"
	StatusUncertain Status = "UNCERTAIN"
	StatusError     Status = "ERROR"
)

// ValidStatus reports whether s is one of the known status values.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusClosed, StatusWaitlist, StatusUncertain, StatusError:
		return true
	}
	return false
}

// FieldUnknown is the placeholder stored for display fields the
// classifier could not extract.
const FieldUnknown = "N/A"

// DefaultLanguage is assumed when a clinic's languages cannot be determined.
const DefaultLanguage = "English"

// ClinicRecord is one monitored clinic. Languages is never empty once
// persisted; it collapses to [DefaultLanguage] when extraction yields nothing.
type ClinicRecord struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	District  string    `json:"district"`
	Province  string    `json:"province"`
	Status    Status    `json:"status"`
	Languages []string  `json:"languages"`
	Vacancy   string    `json:"vacancy"`
	Evidence  string    `json:"evidence"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClinicDocID derives a stable document ID from a clinic URL when the seed
// row carries none: scheme stripped, every non-alphanumeric run replaced
// with an underscore.
func ClinicDocID(url string) string {
	id := strings.TrimPrefix(url, "https://")
	id = strings.TrimPrefix(id, "http://")

	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// NormalizeLanguages enforces the non-empty languages invariant: blank
// entries are trimmed away and an empty result collapses to the default.
func NormalizeLanguages(langs []string) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.TrimSpace(l)
		if l == "" || strings.EqualFold(l, "unknown") {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return []string{DefaultLanguage}
	}
	return out
}
