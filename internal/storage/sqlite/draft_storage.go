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

// DraftStore is the resume_drafts/resume_draft_versions accessor, backing
// the Application Pack Manager's Generate/ManualEdit/Approve/Revert state
// machine (spec §4.7).
type DraftStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewDraftStore(db *DB, logger arbor.ILogger) *DraftStore {
	return &DraftStore{db: db, logger: logger}
}

// GetDraft looks up the latest draft for a (job_key, profile_id) pair.
func (s *DraftStore) GetDraft(ctx context.Context, jobKey, profileID string) (*models.ResumeDraft, bool, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, job_key, profile_id, pack_json, ats_json, rr_export_json, status,
			external_resume_ref, external_resume_status, external_resume_error,
			pdf_ref, pdf_status, pdf_error, created_at, updated_at
		FROM resume_drafts WHERE job_key = ? AND profile_id = ?`, jobKey, profileID)

	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return draft, true, nil
}

func scanDraft(row *sql.Row) (*models.ResumeDraft, error) {
	var d models.ResumeDraft
	var packJSON, atsJSON, rrJSON string
	var extRef, extStatus, extErr, pdfRef, pdfStatus, pdfErr sql.NullString

	err := row.Scan(&d.ID, &d.JobKey, &d.ProfileID, &packJSON, &atsJSON, &rrJSON, &d.Status,
		&extRef, &extStatus, &extErr, &pdfRef, &pdfStatus, &pdfErr, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(packJSON), &d.Pack); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(atsJSON), &d.ATS); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rrJSON), &d.RRExport); err != nil {
		return nil, err
	}
	d.ExternalResumeRef = extRef.String
	d.ExternalResumeStatus = extStatus.String
	d.ExternalResumeError = extErr.String
	d.PDFRef = pdfRef.String
	d.PDFStatus = pdfStatus.String
	d.PDFError = pdfErr.String
	return &d, nil
}

// UpsertDraft writes the latest draft snapshot idempotently on
// (job_key, profile_id).
func (s *DraftStore) UpsertDraft(ctx context.Context, draft *models.ResumeDraft) error {
	packJSON, _ := json.Marshal(draft.Pack)
	atsJSON, _ := json.Marshal(draft.ATS)
	rrJSON, _ := json.Marshal(draft.RRExport)

	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO resume_drafts (
				id, job_key, profile_id, pack_json, ats_json, rr_export_json, status,
				external_resume_ref, external_resume_status, external_resume_error,
				pdf_ref, pdf_status, pdf_error, created_at, updated_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(job_key, profile_id) DO UPDATE SET
				pack_json = excluded.pack_json,
				ats_json = excluded.ats_json,
				rr_export_json = excluded.rr_export_json,
				status = excluded.status,
				external_resume_ref = excluded.external_resume_ref,
				external_resume_status = excluded.external_resume_status,
				external_resume_error = excluded.external_resume_error,
				pdf_ref = excluded.pdf_ref,
				pdf_status = excluded.pdf_status,
				pdf_error = excluded.pdf_error,
				updated_at = excluded.updated_at
		`, draft.ID, draft.JobKey, draft.ProfileID, string(packJSON), string(atsJSON), string(rrJSON),
			string(draft.Status), draft.ExternalResumeRef, draft.ExternalResumeStatus, draft.ExternalResumeError,
			draft.PDFRef, draft.PDFStatus, draft.PDFError, draft.CreatedAt, draft.UpdatedAt)
		return err
	})
}

// AppendVersion inserts an immutable version row. version_no must already be
// the caller-computed NextVersionNo; a duplicate insert for the same
// (draft_id, version_no) is a programming error and surfaces as a conflict.
func (s *DraftStore) AppendVersion(ctx context.Context, version models.DraftVersion) error {
	exists, err := s.db.tableExists("resume_draft_versions")
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindSchemaDisabled, "resume_draft_versions table not present in this schema")
	}

	packJSON, _ := json.Marshal(version.Pack)
	atsJSON, _ := json.Marshal(version.ATS)
	rrJSON, _ := json.Marshal(version.RRExport)

	err = retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO resume_draft_versions (id, draft_id, version_no, source_action, pack_json, ats_json, rr_export_json, created_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			version.ID, version.DraftID, version.VersionNo, version.SourceAction,
			string(packJSON), string(atsJSON), string(rrJSON), version.CreatedAt)
		return err
	})
	if err != nil {
		return apperr.Wrap(apperr.KindConflict, "failed to append draft version", err)
	}
	return nil
}

// ListVersions returns every version for a draft, oldest first.
func (s *DraftStore) ListVersions(ctx context.Context, draftID string) ([]models.DraftVersion, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, draft_id, version_no, source_action, pack_json, ats_json, rr_export_json, created_at
		FROM resume_draft_versions WHERE draft_id = ? ORDER BY version_no ASC`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DraftVersion
	for rows.Next() {
		var v models.DraftVersion
		var packJSON, atsJSON, rrJSON string
		if err := rows.Scan(&v.ID, &v.DraftID, &v.VersionNo, &v.SourceAction, &packJSON, &atsJSON, &rrJSON, &v.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(packJSON), &v.Pack)
		_ = json.Unmarshal([]byte(atsJSON), &v.ATS)
		_ = json.Unmarshal([]byte(rrJSON), &v.RRExport)
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVersion fetches one specific version (used by Revert).
func (s *DraftStore) GetVersion(ctx context.Context, draftID string, versionNo int) (*models.DraftVersion, bool, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT id, draft_id, version_no, source_action, pack_json, ats_json, rr_export_json, created_at
		FROM resume_draft_versions WHERE draft_id = ? AND version_no = ?`, draftID, versionNo)

	var v models.DraftVersion
	var packJSON, atsJSON, rrJSON string
	err := row.Scan(&v.ID, &v.DraftID, &v.VersionNo, &v.SourceAction, &packJSON, &atsJSON, &rrJSON, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	_ = json.Unmarshal([]byte(packJSON), &v.Pack)
	_ = json.Unmarshal([]byte(atsJSON), &v.ATS)
	_ = json.Unmarshal([]byte(rrJSON), &v.RRExport)
	return &v, true, nil
}

// JobProfilePreference resolves the job's preferred resume profile override,
// if any (spec §4.7 "falls back to the primary profile").
func (s *DraftStore) JobProfilePreference(ctx context.Context, jobKey string) (string, bool, error) {
	var profileID string
	err := s.db.db.QueryRowContext(ctx, `SELECT profile_id FROM job_profile_preferences WHERE job_key = ?`, jobKey).Scan(&profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return profileID, true, nil
}

// SetJobProfilePreference upserts the override.
func (s *DraftStore) SetJobProfilePreference(ctx context.Context, jobKey, profileID string) error {
	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO job_profile_preferences (job_key, profile_id) VALUES (?, ?)
			ON CONFLICT(job_key) DO UPDATE SET profile_id = excluded.profile_id`, jobKey, profileID)
		return err
	})
}
