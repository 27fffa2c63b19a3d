package sqlite

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/models"
)

// ContactStore is the contacts/contact_touchpoints accessor for outreach
// tracking (spec §4.4 potential_contacts, §4.8 outreach drafts).
type ContactStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewContactStore(db *DB, logger arbor.ILogger) *ContactStore {
	return &ContactStore{db: db, logger: logger}
}

func (s *ContactStore) Upsert(ctx context.Context, c models.Contact) error {
	exists, err := s.db.tableExists("contacts")
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindSchemaDisabled, "contacts table not present in this schema")
	}

	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO contacts (id, name, title, company, profile_url, created_at)
			VALUES (?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				title = excluded.title,
				company = excluded.company,
				profile_url = excluded.profile_url
		`, c.ID, c.Name, c.Title, c.Company, c.ProfileURL, c.CreatedAt)
		return err
	})
}

func (s *ContactStore) UpsertTouchpoint(ctx context.Context, t models.Touchpoint) error {
	exists, err := s.db.tableExists("contact_touchpoints")
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindSchemaDisabled, "contact_touchpoints table not present in this schema")
	}

	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO contact_touchpoints (id, contact_id, job_key, channel, status, notes, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?)
			ON CONFLICT(contact_id, job_key, channel) DO UPDATE SET
				status = excluded.status,
				notes = excluded.notes,
				updated_at = excluded.updated_at
		`, t.ID, t.ContactID, t.JobKey, string(t.Channel), string(t.Status), t.Notes, t.CreatedAt, t.UpdatedAt)
		return err
	})
}

func (s *ContactStore) ListTouchpointsForJob(ctx context.Context, jobKey string) ([]models.Touchpoint, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, contact_id, job_key, channel, status, notes, created_at, updated_at
		FROM contact_touchpoints WHERE job_key = ? ORDER BY created_at ASC`, jobKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Touchpoint
	for rows.Next() {
		var t models.Touchpoint
		if err := rows.Scan(&t.ID, &t.ContactID, &t.JobKey, &t.Channel, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
