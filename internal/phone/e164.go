// internal/phone/e164.go
package phone

import "strings"

// FormatE164 normalizes a raw North American phone number to E.164.
// 10 digits get a +1 country code; 11 digits starting with 1 get a +;
// numbers already +-prefixed with at least 10 digits pass through. Anything
// else is unusable and returns empty.
func FormatE164(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && d[0] == '1':
		return "+" + d
	case strings.HasPrefix(strings.TrimSpace(raw), "+") && len(d) >= 10:
		return "+" + d
	}
	return ""
}
