package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/models"
)

// TargetStore is the targets-table accessor (spec §4.4 target profiles).
type TargetStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewTargetStore(db *DB, logger arbor.ILogger) *TargetStore {
	return &TargetStore{db: db, logger: logger}
}

func (s *TargetStore) Upsert(ctx context.Context, t models.Target) error {
	mustJSON, _ := json.Marshal(t.MustKeywords)
	niceJSON, _ := json.Marshal(t.NiceKeywords)
	rejectJSON, _ := json.Marshal(t.RejectKeywords)

	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO targets (id, name, primary_role, seniority_pref, location_pref, must_keywords_json,
				nice_keywords_json, reject_keywords_json, rubric_profile, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				primary_role = excluded.primary_role,
				seniority_pref = excluded.seniority_pref,
				location_pref = excluded.location_pref,
				must_keywords_json = excluded.must_keywords_json,
				nice_keywords_json = excluded.nice_keywords_json,
				reject_keywords_json = excluded.reject_keywords_json,
				rubric_profile = excluded.rubric_profile,
				updated_at = excluded.updated_at
		`, t.ID, t.Name, t.PrimaryRole, t.SeniorityPref, t.LocationPref, string(mustJSON), string(niceJSON),
			string(rejectJSON), string(t.RubricProfile), t.CreatedAt, t.UpdatedAt)
		return err
	})
}

func (s *TargetStore) Get(ctx context.Context, id string) (*models.Target, bool, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, name, primary_role, seniority_pref, location_pref, must_keywords_json, nice_keywords_json,
			reject_keywords_json, rubric_profile, created_at, updated_at
		FROM targets WHERE id = ?`, id)

	var t models.Target
	var mustJSON, niceJSON, rejectJSON string
	err := row.Scan(&t.ID, &t.Name, &t.PrimaryRole, &t.SeniorityPref, &t.LocationPref, &mustJSON, &niceJSON,
		&rejectJSON, &t.RubricProfile, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	_ = json.Unmarshal([]byte(mustJSON), &t.MustKeywords)
	_ = json.Unmarshal([]byte(niceJSON), &t.NiceKeywords)
	_ = json.Unmarshal([]byte(rejectJSON), &t.RejectKeywords)
	return &t, true, nil
}

// ProfileStore is the resume_profiles-table accessor. It enforces the
// "exactly one is_primary profile" invariant in application code rather than
// a SQL constraint, so a violation surfaces as an apperr.KindConflict.
type ProfileStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewProfileStore(db *DB, logger arbor.ILogger) *ProfileStore {
	return &ProfileStore{db: db, logger: logger}
}

// Upsert writes a profile. When markPrimary is true, every other profile's
// is_primary flag is cleared in the same transaction.
func (s *ProfileStore) Upsert(ctx context.Context, p models.ResumeProfile, markPrimary bool) error {
	profileJSON, err := json.Marshal(p.Profile)
	if err != nil {
		return err
	}

	return retryWithBackoff(ctx, s.logger, func() error {
		tx, err := s.db.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if markPrimary {
			if _, err := tx.ExecContext(ctx, `UPDATE resume_profiles SET is_primary = 0 WHERE id != ?`, p.ID); err != nil {
				return err
			}
		}

		isPrimary := p.IsPrimary || markPrimary
		_, err = tx.ExecContext(ctx, `
			INSERT INTO resume_profiles (id, name, is_primary, profile_json, created_at, updated_at)
			VALUES (?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				is_primary = excluded.is_primary,
				profile_json = excluded.profile_json,
				updated_at = excluded.updated_at
		`, p.ID, p.Name, boolToInt(isPrimary), string(profileJSON), p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		return s.requireSinglePrimary(ctx)
	})
}

func (s *ProfileStore) Primary(ctx context.Context) (*models.ResumeProfile, bool, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, name, is_primary, profile_json, created_at, updated_at FROM resume_profiles
		WHERE is_primary = 1 LIMIT 1`)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *ProfileStore) Get(ctx context.Context, id string) (*models.ResumeProfile, bool, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, name, is_primary, profile_json, created_at, updated_at FROM resume_profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func scanProfile(row *sql.Row) (*models.ResumeProfile, error) {
	var p models.ResumeProfile
	var isPrimary int
	var profileJSON string
	if err := row.Scan(&p.ID, &p.Name, &isPrimary, &profileJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.IsPrimary = isPrimary != 0
	if err := json.Unmarshal([]byte(profileJSON), &p.Profile); err != nil {
		return nil, err
	}
	return &p, nil
}

// requireSinglePrimary is a defensive check callable after writes that don't
// go through Upsert's markPrimary path (e.g. a direct migration import).
func (s *ProfileStore) requireSinglePrimary(ctx context.Context) error {
	var count int
	if err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resume_profiles WHERE is_primary = 1`).Scan(&count); err != nil {
		return err
	}
	if count > 1 {
		return apperr.New(apperr.KindConflict, "more than one resume profile is marked primary")
	}
	return nil
}
