// internal/classifier/prompt.go
package classifier

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxContextChars bounds the text submitted to the model.
const maxContextChars = 15000

// buildPrompt assembles the status policy contract and the page text. The
// policy is deliberately strict about OPEN: only explicit, current
// acceptance of new primary-care patients qualifies.
func buildPrompt(text string) string {
	if len(text) > maxContextChars {
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := maxContextChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var parts []string

	parts = append(parts, "Analyze the following text from a clinic's website and extract the information below.")
	parts = append(parts, "\nCRITICAL INSTRUCTIONS FOR STATUS:")
	parts = append(parts, `- "OPEN": ONLY if the text EXPLICITLY states they are currently accepting new patients for family practice/primary care (e.g., "Accepting new patients", "Register now", "New patients welcome").`)
	parts = append(parts, `- "WAITLIST": If they are accepting registrations ONLY for a waitlist.`)
	parts = append(parts, `- "CLOSED": If they state they are not accepting, full, or only taking referrals for specialists (unless it's a primary care referral).`)
	parts = append(parts, `- "UNCERTAIN": If there is no clear information.`)
	parts = append(parts, `Weight sections titled "New Patients" or "Register" higher than the rest of the page.`)

	parts = append(parts, "\nRespond ONLY with a JSON object in the following format:")
	parts = append(parts, `{
    "clinic_name": "Name of the clinic",
    "address": "Full address if available",
    "district": "City or neighborhood (e.g. Toronto, Scarborough)",
    "phone_number": "Phone number",
    "remaining_vacancy": "Number of spots or 'Unknown'",
    "languages": "List of languages spoken or 'Unknown'",
    "status": "OPEN", "CLOSED", "WAITLIST", or "UNCERTAIN",
    "reason": "Brief explanation of why",
    "evidence": "The EXACT sentence or phrase from the text that led to this decision"
}`)

	parts = append(parts, fmt.Sprintf("\nText:\n%s", text))

	return strings.Join(parts, "\n")
}
