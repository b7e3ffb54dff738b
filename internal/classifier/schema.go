// internal/classifier/schema.go
package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"clinic-scout/internal/models"
)

// resultSchema validates the raw model payload before coercion. Languages
// is allowed as string or array since the model is inconsistent about it.
const resultSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"clinic_name":       {"type": "string"},
		"address":           {"type": "string"},
		"district":          {"type": "string"},
		"phone_number":      {"type": "string"},
		"remaining_vacancy": {"type": ["string", "number"]},
		"languages":         {"type": ["string", "array"], "items": {"type": "string"}},
		"status":            {"type": "string", "enum": ["OPEN", "CLOSED", "WAITLIST", "UNCERTAIN", "ERROR"]},
		"reason":            {"type": "string"},
		"evidence":          {"type": "string"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(resultSchema)

// stripCodeFence removes markdown code-fence wrapping the model sometimes
// adds around its JSON payload.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseResult validates and coerces the raw model text into a Result.
func parseResult(raw string) (Result, error) {
	payload := stripCodeFence(raw)

	validation, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("parse model output: %w", err)
	}
	if !validation.Valid() {
		var problems []string
		for _, desc := range validation.Errors() {
			problems = append(problems, desc.String())
		}
		return Result{}, fmt.Errorf("model output failed validation: %s", strings.Join(problems, "; "))
	}

	var rawResult struct {
		ClinicName string          `json:"clinic_name"`
		Address    string          `json:"address"`
		District   string          `json:"district"`
		Phone      string          `json:"phone_number"`
		Vacancy    json.RawMessage `json:"remaining_vacancy"`
		Languages  json.RawMessage `json:"languages"`
		Status     string          `json:"status"`
		Reason     string          `json:"reason"`
		Evidence   string          `json:"evidence"`
	}
	if err := json.Unmarshal([]byte(payload), &rawResult); err != nil {
		return Result{}, fmt.Errorf("decode model output: %w", err)
	}

	status := models.Status(strings.ToUpper(strings.TrimSpace(rawResult.Status)))
	if !models.ValidStatus(status) {
		return Result{}, fmt.Errorf("unknown status %q", rawResult.Status)
	}

	return Result{
		ClinicName: orUnknown(rawResult.ClinicName),
		Address:    orUnknown(rawResult.Address),
		District:   orUnknown(rawResult.District),
		Phone:      orUnknown(rawResult.Phone),
		Vacancy:    orUnknown(coerceString(rawResult.Vacancy)),
		Languages:  coerceLanguages(rawResult.Languages),
		Status:     status,
		Reason:     rawResult.Reason,
		Evidence:   orUnknown(rawResult.Evidence),
	}, nil
}

// coerceLanguages handles the model returning languages as either an array
// or a comma-joined string, defaulting to English when nothing usable
// remains.
func coerceLanguages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{models.DefaultLanguage}
	}

	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return models.NormalizeLanguages(arr)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.NormalizeLanguages(strings.Split(s, ","))
	}

	return []string{models.DefaultLanguage}
}

// coerceString renders a value that may arrive as string or number.
func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strings.TrimSuffix(fmt.Sprintf("%v", n), ".0")
	}
	return ""
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.FieldUnknown
	}
	return s
}
