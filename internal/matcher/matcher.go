// internal/matcher/matcher.go

// Package matcher selects the premium subscribers whose location and
// language preferences match an open clinic. The location rule is a loose,
// symmetric substring heuristic: "Toronto" matching "North Toronto Clinic"
// is an accepted tradeoff, not a bug.
package matcher

import (
	"strings"

	"clinic-scout/internal/models"
)

// Sentinel area values meaning "anywhere in the province".
const (
	sentinelProvinceWide = "ontario wide"
	sentinelAllLocations = "all locations"
)

// Match returns the subset of subscribers eligible for an alert about a
// clinic in the given district speaking the given languages. Only premium
// subscribers with a phone number are considered. Result order follows the
// input slice and carries no guarantee.
func Match(subscribers []models.SubscriberRecord, clinicDistrict string, clinicLanguages []string) []models.SubscriberRecord {
	var out []models.SubscriberRecord
	for _, sub := range subscribers {
		if !sub.IsPremium || sub.PhoneNumber == "" {
			continue
		}
		if !LocationMatches(sub.Areas, clinicDistrict) {
			continue
		}
		if !LanguageMatches(sub.Languages, clinicLanguages) {
			continue
		}
		out = append(out, sub)
	}
	return out
}

// LocationMatches reports whether any subscriber area matches the clinic
// district. An area matches on exact equality (case-insensitive), on either
// side carrying a province-wide sentinel, or on substring containment in
// either direction.
func LocationMatches(areas []string, clinicDistrict string) bool {
	district := strings.ToLower(strings.TrimSpace(clinicDistrict))

	for _, area := range areas {
		a := strings.ToLower(strings.TrimSpace(area))
		if a == "" {
			continue
		}

		if a == district {
			return true
		}
		if strings.Contains(a, sentinelProvinceWide) || strings.Contains(a, sentinelAllLocations) {
			return true
		}
		// Clinic itself is province-wide, matches any area.
		if strings.Contains(district, sentinelProvinceWide) {
			return true
		}
		if district != "" && (strings.Contains(a, district) || strings.Contains(district, a)) {
			return true
		}
	}
	return false
}

// LanguageMatches reports whether the subscriber's language preferences are
// compatible with the clinic's languages. Either side being empty is a
// permissive match. Otherwise any subscriber language must appear as a
// case-insensitive substring of any clinic language.
func LanguageMatches(subscriberLanguages, clinicLanguages []string) bool {
	if len(subscriberLanguages) == 0 || len(clinicLanguages) == 0 {
		return true
	}

	for _, want := range subscriberLanguages {
		w := strings.ToLower(strings.TrimSpace(want))
		if w == "" {
			continue
		}
		for _, have := range clinicLanguages {
			if strings.Contains(strings.ToLower(have), w) {
				return true
			}
		}
	}
	return false
}
