// internal/seed/seed.go
package seed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"clinic-scout/internal/models"
)

// Target is one clinic to monitor, as read from the seed CSV.
type Target struct {
	URL      string
	ID       string
	City     string
	Province string
}

// Load reads the ordered clinic target list from a CSV file with a header
// row containing at least a "url" column. Rows without a URL are skipped.
// Targets with no explicit id get one derived from the URL.
func Load(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file %s: %w", path, err)
	}
	defer f.Close()

	return parse(f)
}

func parse(r io.Reader) ([]Target, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// Hand-maintained seed lists often have ragged rows.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read seed header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, fmt.Errorf("seed file has no url column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var targets []Target
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seed row: %w", err)
		}

		url := field(row, "url")
		if url == "" {
			continue
		}

		t := Target{
			URL:      url,
			ID:       field(row, "id"),
			City:     field(row, "city"),
			Province: field(row, "province"),
		}
		if t.ID == "" {
			t.ID = models.ClinicDocID(t.URL)
		}
		targets = append(targets, t)
	}

	return targets, nil
}
