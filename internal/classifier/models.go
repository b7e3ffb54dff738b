// internal/classifier/models.go
package classifier

import "clinic-scout/internal/models"

// Result is the fixed-shape outcome of one classification call. Shape
// deviations in the raw model output are coerced to documented defaults at
// this boundary, nowhere else.
type Result struct {
	ClinicName string        `json:"clinicName"`
	Address    string        `json:"address"`
	District   string        `json:"district"`
	Phone      string        `json:"phone"`
	Vacancy    string        `json:"vacancy"`
	Languages  []string      `json:"languages"`
	Status     models.Status `json:"status"`
	Reason     string        `json:"reason"`
	Evidence   string        `json:"evidence"`
}

// errorResult marks a clinic as un-classifiable for this cycle. This is a
// recorded outcome, not a pipeline failure.
func errorResult(reason string) Result {
	return Result{
		ClinicName: models.FieldUnknown,
		Address:    models.FieldUnknown,
		District:   models.FieldUnknown,
		Phone:      models.FieldUnknown,
		Vacancy:    models.FieldUnknown,
		Languages:  []string{models.DefaultLanguage},
		Status:     models.StatusError,
		Reason:     reason,
		Evidence:   models.FieldUnknown,
	}
}
