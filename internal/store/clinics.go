// internal/store/clinics.go

// Package store is the persistence layer over the three logical
// collections: clinics, users and the append-only notification log.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	scouterrors "clinic-scout/internal/common/errors"
	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"
)

// ClinicStore tracks each clinic's last-known state so transitions, not
// just current state, can be detected.
type ClinicStore struct {
	db     *sql.DB
	logger logger.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewClinicStore(db *sql.DB, log logger.Logger, loc *time.Location) *ClinicStore {
	return &ClinicStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "clinic-store"}),
		loc:    loc,
		now:    time.Now,
	}
}

// ClinicFields is a merge-upsert payload. Nil fields are left untouched on
// an existing record; Status and URL are always written.
type ClinicFields struct {
	URL       string
	Status    models.Status
	Name      *string
	Address   *string
	Phone     *string
	District  *string
	Province  *string
	Languages []string
	Vacancy   *string
	Evidence  *string
	Reason    *string
}

// GetPriorStatus returns the clinic's last recorded status, or nil when the
// clinic was never recorded.
func (s *ClinicStore) GetPriorStatus(ctx context.Context, clinicID string) (*models.Status, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM clinics WHERE id = $1`, clinicID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, scouterrors.NewStoreUnavailableError("get prior status", err)
	}
	st := models.Status(status)
	return &st, nil
}

// upsertQuery reads the prior status and merge-writes the new fields in one
// statement, so the caller observes the pre-write status atomically
// relative to the write. Concurrent writers against the same clinic ID are
// out of scope (single writer per clinic per cycle assumed).
const upsertQuery = `
WITH prior AS (
	SELECT status FROM clinics WHERE id = $1
), upsert AS (
	INSERT INTO clinics
		(id, url, name, address, phone, district, province, status, languages, vacancy, evidence, reason, updated_at)
	VALUES
		($1, $2,
		 COALESCE($4,  'N/A'),
		 COALESCE($5,  'N/A'),
		 COALESCE($6,  'N/A'),
		 COALESCE($7,  'N/A'),
		 COALESCE($8,  'N/A'),
		 $3,
		 COALESCE($9,  ARRAY['English']),
		 COALESCE($10, 'N/A'),
		 COALESCE($11, 'N/A'),
		 COALESCE($12, ''),
		 $13)
	ON CONFLICT (id) DO UPDATE SET
		url        = EXCLUDED.url,
		status     = EXCLUDED.status,
		name       = COALESCE($4,  clinics.name),
		address    = COALESCE($5,  clinics.address),
		phone      = COALESCE($6,  clinics.phone),
		district   = COALESCE($7,  clinics.district),
		province   = COALESCE($8,  clinics.province),
		languages  = COALESCE($9,  clinics.languages),
		vacancy    = COALESCE($10, clinics.vacancy),
		evidence   = COALESCE($11, clinics.evidence),
		reason     = COALESCE($12, clinics.reason),
		updated_at = $13
)
SELECT status FROM prior`

// Upsert merge-writes the clinic record, stamping updated_at in the
// canonical timezone, and returns the status the clinic had before this
// write (nil for a brand-new clinic).
func (s *ClinicStore) Upsert(ctx context.Context, clinicID string, fields ClinicFields) (*models.Status, error) {
	var langs interface{}
	if len(fields.Languages) > 0 {
		langs = pq.Array(models.NormalizeLanguages(fields.Languages))
	}

	row := s.db.QueryRowContext(ctx, upsertQuery,
		clinicID,
		fields.URL,
		string(fields.Status),
		nullable(fields.Name),
		nullable(fields.Address),
		nullable(fields.Phone),
		nullable(fields.District),
		nullable(fields.Province),
		langs,
		nullable(fields.Vacancy),
		nullable(fields.Evidence),
		nullable(fields.Reason),
		s.now().In(s.loc),
	)

	var prior string
	err := row.Scan(&prior)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, scouterrors.NewStoreUnavailableError(fmt.Sprintf("upsert clinic %s", clinicID), err)
	}

	st := models.Status(prior)
	return &st, nil
}

// Get fetches a full clinic record, mostly for operator tooling and tests.
func (s *ClinicStore) Get(ctx context.Context, clinicID string) (*models.ClinicRecord, error) {
	var rec models.ClinicRecord
	var langs pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, name, address, phone, district, province, status,
		       languages, vacancy, evidence, reason, updated_at
		FROM clinics WHERE id = $1`, clinicID).
		Scan(&rec.ID, &rec.URL, &rec.Name, &rec.Address, &rec.Phone,
			&rec.District, &rec.Province, (*string)(&rec.Status),
			&langs, &rec.Vacancy, &rec.Evidence, &rec.Reason, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, scouterrors.NewStoreUnavailableError(fmt.Sprintf("get clinic %s", clinicID), err)
	}
	rec.Languages = []string(langs)
	return &rec, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
