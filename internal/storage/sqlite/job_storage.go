package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/models"
)

// JobStore is the jobs-table accessor; it implements ingest.Store's GetJob
// and UpsertJob methods plus the rescore/score-pending queries the scheduler
// needs.
type JobStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewJobStore(db *DB, logger arbor.ILogger) *JobStore {
	return &JobStore{db: db, logger: logger}
}

// GetJob looks up a job by key, returning (nil, false, nil) when absent.
func (s *JobStore) GetJob(ctx context.Context, jobKey string) (*models.Job, bool, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT job_key, job_url, source_domain, job_id, company, role_title, location, work_mode, seniority,
			experience_years_min, experience_years_max, must_keywords_json, nice_keywords_json,
			reject_keywords_json, skills_json, jd_text_clean, jd_source, fetch_status, fetch_debug_json,
			primary_target_id, score_must, score_nice, final_score, reject_triggered, reject_reasons_json,
			reason_top_matches, status, system_status, created_at, updated_at, last_scored_at, applied_at,
			rejected_at, archived_at
		FROM jobs WHERE job_key = ?`, jobKey)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func scanJob(row *sql.Row) (*models.Job, error) {
	var j models.Job
	var jobID, company, roleTitle, location, workMode, seniority, jdTextClean, jdSource, fetchStatus, primaryTargetID, reasonTop, systemStatus sql.NullString
	var expMin, expMax, finalScore sql.NullInt64
	var lastScoredAt, appliedAt, rejectedAt, archivedAt sql.NullInt64
	var mustJSON, niceJSON, rejectJSON, skillsJSON, fetchDebugJSON, rejectReasonsJSON string
	var rejectTriggered int

	err := row.Scan(&j.JobKey, &j.JobURL, &j.SourceDomain, &jobID, &company, &roleTitle, &location, &workMode,
		&seniority, &expMin, &expMax, &mustJSON, &niceJSON, &rejectJSON, &skillsJSON, &jdTextClean, &jdSource,
		&fetchStatus, &fetchDebugJSON, &primaryTargetID, &j.ScoreMust, &j.ScoreNice, &finalScore,
		&rejectTriggered, &rejectReasonsJSON, &reasonTop, &j.Status, &systemStatus, &j.CreatedAt, &j.UpdatedAt,
		&lastScoredAt, &appliedAt, &rejectedAt, &archivedAt)
	if err != nil {
		return nil, err
	}

	if jobID.Valid {
		j.JobID = &jobID.String
	}
	j.Company = company.String
	j.RoleTitle = roleTitle.String
	j.Location = location.String
	j.WorkMode = models.WorkMode(workMode.String)
	j.Seniority = seniority.String
	if expMin.Valid {
		v := int(expMin.Int64)
		j.ExperienceYearsMin = &v
	}
	if expMax.Valid {
		v := int(expMax.Int64)
		j.ExperienceYearsMax = &v
	}
	_ = json.Unmarshal([]byte(mustJSON), &j.MustKeywords)
	_ = json.Unmarshal([]byte(niceJSON), &j.NiceKeywords)
	_ = json.Unmarshal([]byte(rejectJSON), &j.RejectKeywords)
	_ = json.Unmarshal([]byte(skillsJSON), &j.Skills)
	j.JDTextClean = jdTextClean.String
	j.JDSource = models.JDSource(jdSource.String)
	j.FetchStatus = models.FetchStatus(fetchStatus.String)
	_ = json.Unmarshal([]byte(fetchDebugJSON), &j.FetchDebug)
	j.PrimaryTargetID = primaryTargetID.String
	if finalScore.Valid {
		v := int(finalScore.Int64)
		j.FinalScore = &v
	}
	j.RejectTriggered = rejectTriggered != 0
	_ = json.Unmarshal([]byte(rejectReasonsJSON), &j.RejectReasons)
	j.ReasonTopMatches = reasonTop.String
	if systemStatus.Valid {
		st := models.SystemStatus(systemStatus.String)
		j.SystemStatus = &st
	}
	if lastScoredAt.Valid {
		v := lastScoredAt.Int64
		j.LastScoredAt = &v
	}
	if appliedAt.Valid {
		v := appliedAt.Int64
		j.AppliedAt = &v
	}
	if rejectedAt.Valid {
		v := rejectedAt.Int64
		j.RejectedAt = &v
	}
	if archivedAt.Valid {
		v := archivedAt.Int64
		j.ArchivedAt = &v
	}
	return &j, nil
}

// UpsertJob writes job idempotently via ON CONFLICT(job_key) DO UPDATE. The
// caller (ingest/scoring) is responsible for the status-preservation
// invariant (spec §3); this method writes whatever status it is given.
func (s *JobStore) UpsertJob(ctx context.Context, job *models.Job) error {
	mustJSON, _ := json.Marshal(job.MustKeywords)
	niceJSON, _ := json.Marshal(job.NiceKeywords)
	rejectJSON, _ := json.Marshal(job.RejectKeywords)
	skillsJSON, _ := json.Marshal(job.Skills)
	fetchDebugJSON, _ := json.Marshal(job.FetchDebug)
	rejectReasonsJSON, _ := json.Marshal(job.RejectReasons)

	var jobID interface{}
	if job.JobID != nil {
		jobID = *job.JobID
	}
	var systemStatus interface{}
	if job.SystemStatus != nil {
		systemStatus = string(*job.SystemStatus)
	}

	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO jobs (
				job_key, job_url, source_domain, job_id, company, role_title, location, work_mode, seniority,
				experience_years_min, experience_years_max, must_keywords_json, nice_keywords_json,
				reject_keywords_json, skills_json, jd_text_clean, jd_source, fetch_status, fetch_debug_json,
				primary_target_id, score_must, score_nice, final_score, reject_triggered, reject_reasons_json,
				reason_top_matches, status, system_status, created_at, updated_at, last_scored_at, applied_at,
				rejected_at, archived_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(job_key) DO UPDATE SET
				job_url = excluded.job_url,
				source_domain = excluded.source_domain,
				job_id = excluded.job_id,
				company = excluded.company,
				role_title = excluded.role_title,
				location = excluded.location,
				work_mode = excluded.work_mode,
				seniority = excluded.seniority,
				experience_years_min = excluded.experience_years_min,
				experience_years_max = excluded.experience_years_max,
				must_keywords_json = excluded.must_keywords_json,
				nice_keywords_json = excluded.nice_keywords_json,
				reject_keywords_json = excluded.reject_keywords_json,
				skills_json = excluded.skills_json,
				jd_text_clean = excluded.jd_text_clean,
				jd_source = excluded.jd_source,
				fetch_status = excluded.fetch_status,
				fetch_debug_json = excluded.fetch_debug_json,
				primary_target_id = excluded.primary_target_id,
				score_must = excluded.score_must,
				score_nice = excluded.score_nice,
				final_score = excluded.final_score,
				reject_triggered = excluded.reject_triggered,
				reject_reasons_json = excluded.reject_reasons_json,
				reason_top_matches = excluded.reason_top_matches,
				status = excluded.status,
				system_status = excluded.system_status,
				updated_at = excluded.updated_at,
				last_scored_at = excluded.last_scored_at,
				applied_at = excluded.applied_at,
				rejected_at = excluded.rejected_at,
				archived_at = excluded.archived_at
		`,
			job.JobKey, job.JobURL, job.SourceDomain, jobID, job.Company, job.RoleTitle, job.Location,
			string(job.WorkMode), job.Seniority, job.ExperienceYearsMin, job.ExperienceYearsMax,
			string(mustJSON), string(niceJSON), string(rejectJSON), string(skillsJSON), job.JDTextClean,
			string(job.JDSource), string(job.FetchStatus), string(fetchDebugJSON), job.PrimaryTargetID,
			job.ScoreMust, job.ScoreNice, job.FinalScore, boolToInt(job.RejectTriggered), string(rejectReasonsJSON),
			job.ReasonTopMatches, string(job.Status), systemStatus, job.CreatedAt, job.UpdatedAt,
			job.LastScoredAt, job.AppliedAt, job.RejectedAt, job.ArchivedAt,
		)
		return err
	})
}

// UpsertEvidence batch-writes evidence rows (spec §4.9 "Batch writes for
// evidence rows"), idempotent on (job_key, requirement_text, requirement_type).
// Returns apperr KindSchemaDisabled if the optional table is absent.
func (s *JobStore) UpsertEvidence(ctx context.Context, rows []models.JobEvidence) error {
	if len(rows) == 0 {
		return nil
	}

	exists, err := s.db.tableExists("job_evidence")
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindSchemaDisabled, "job_evidence table not present in this schema")
	}

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_evidence (
			job_key, requirement_text, requirement_type, evidence_text, evidence_source,
			confidence_score, matched, notes, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(job_key, requirement_text, requirement_type) DO UPDATE SET
			evidence_text = excluded.evidence_text,
			evidence_source = excluded.evidence_source,
			confidence_score = excluded.confidence_score,
			matched = excluded.matched,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	nowMillis := common.NowMillis()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.JobKey, r.RequirementText, string(r.RequirementType),
			r.EvidenceText, string(r.EvidenceSource), r.Confidence, boolToInt(r.Matched), r.Notes,
			nowMillis, nowMillis); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListTargets returns every configured target profile.
func (s *JobStore) ListTargets(ctx context.Context) ([]models.Target, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, name, primary_role, seniority_pref, location_pref, must_keywords_json, nice_keywords_json,
			reject_keywords_json, rubric_profile, created_at, updated_at
		FROM targets ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Target
	for rows.Next() {
		var t models.Target
		var mustJSON, niceJSON, rejectJSON string
		if err := rows.Scan(&t.ID, &t.Name, &t.PrimaryRole, &t.SeniorityPref, &t.LocationPref, &mustJSON,
			&niceJSON, &rejectJSON, &t.RubricProfile, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(mustJSON), &t.MustKeywords)
		_ = json.Unmarshal([]byte(niceJSON), &t.NiceKeywords)
		_ = json.Unmarshal([]byte(rejectJSON), &t.RejectKeywords)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PrimaryResumeProfile returns the is_primary=1 profile's structured content.
func (s *JobStore) PrimaryResumeProfile(ctx context.Context) (models.ProfileJSON, error) {
	var profileJSON string
	err := s.db.db.QueryRowContext(ctx, `SELECT profile_json FROM resume_profiles WHERE is_primary = 1 LIMIT 1`).Scan(&profileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProfileJSON{}, apperr.New(apperr.KindNotFound, "no primary resume profile configured")
	}
	if err != nil {
		return models.ProfileJSON{}, err
	}
	var p models.ProfileJSON
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return models.ProfileJSON{}, err
	}
	return p, nil
}

// ListBySystemStatus returns up to limit jobs carrying systemStatus, oldest
// updated_at first, for the scheduler's recovery sweeps.
func (s *JobStore) ListBySystemStatus(ctx context.Context, systemStatus models.SystemStatus, limit int) ([]*models.Job, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT job_key FROM jobs WHERE system_status = ? ORDER BY updated_at ASC LIMIT ?`,
		string(systemStatus), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.fetchByKeys(ctx, keys)
}

// ListMissingExtractedFields returns jobs with a usable JD but empty
// must_keywords, the recovery_missing_fields stage's candidate set.
func (s *JobStore) ListMissingExtractedFields(ctx context.Context, limit int) ([]*models.Job, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT job_key FROM jobs
		WHERE fetch_status = ? AND jd_text_clean IS NOT NULL AND length(jd_text_clean) >= 180
			AND must_keywords_json = '[]'
		ORDER BY updated_at ASC LIMIT ?`, string(models.FetchStatusOK), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.fetchByKeys(ctx, keys)
}

// ListByStatuses returns up to limit jobs whose status is one of statuses,
// oldest updated_at first (backs /score-pending and the score_pending stage).
func (s *JobStore) ListByStatuses(ctx context.Context, statuses []models.JobStatus, limit int) ([]*models.Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, 0, len(statuses)+1)
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	args = append(args, limit)

	query := "SELECT job_key FROM jobs WHERE status IN (" + joinPlaceholders(placeholders) + ") ORDER BY updated_at ASC LIMIT ?"
	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.fetchByKeys(ctx, keys)
}

func (s *JobStore) fetchByKeys(ctx context.Context, keys []string) ([]*models.Job, error) {
	out := make([]*models.Job, 0, len(keys))
	for _, k := range keys {
		job, found, err := s.GetJob(ctx, k)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, job)
		}
	}
	return out, nil
}

// ListArchivedForRebuild returns up to limit jobs eligible for an evidence
// rebuild pass, ordered by job_key for stable cursor pagination. mode
// "retry_failed" selects jobs whose JD fetch didn't succeed or that are still
// AI-unavailable; "all_archived" selects every archived job regardless of
// fetch/AI state.
func (s *JobStore) ListArchivedForRebuild(ctx context.Context, mode, cursorJobKey string, limit int) ([]*models.Job, error) {
	var modeClause string
	switch mode {
	case "all_archived":
		modeClause = "status = ?"
	default:
		modeClause = "(fetch_status IS NULL OR fetch_status != 'ok' OR system_status = 'AI_UNAVAILABLE')"
	}

	args := []interface{}{}
	query := "SELECT job_key FROM jobs WHERE status = 'ARCHIVED'"
	if mode == "all_archived" {
		query = "SELECT job_key FROM jobs WHERE " + modeClause
		args = append(args, models.JobStatusArchived)
	} else {
		query += " AND " + modeClause
	}
	if cursorJobKey != "" {
		query += " AND job_key > ?"
		args = append(args, cursorJobKey)
	}
	query += " ORDER BY job_key LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list archived jobs for rebuild", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return s.fetchByKeys(ctx, keys)
}

// MissedMustRequirements aggregates unmatched "must" evidence rows by
// requirement text across jobs matching statusFilter (empty means no status
// filter), keeping only requirements missed at least minMissed times, ordered
// most-missed first and capped at top.
func (s *JobStore) MissedMustRequirements(ctx context.Context, statusFilter string, minMissed, top int) ([]models.GapReportRow, error) {
	exists, err := s.db.tableExists("job_evidence")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.New(apperr.KindSchemaDisabled, "job_evidence table is not present in this schema")
	}

	query := `
		SELECT e.requirement_text, COUNT(*) AS missed_count
		FROM job_evidence e
		JOIN jobs j ON j.job_key = e.job_key
		WHERE e.requirement_type = 'must' AND e.matched = 0`
	args := []interface{}{}
	if statusFilter != "" {
		query += " AND j.status = ?"
		args = append(args, statusFilter)
	}
	query += " GROUP BY e.requirement_text HAVING COUNT(*) >= ? ORDER BY missed_count DESC LIMIT ?"
	args = append(args, minMissed, top)

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to aggregate missed must requirements", err)
	}
	defer rows.Close()

	var out []models.GapReportRow
	for rows.Next() {
		var row models.GapReportRow
		if err := rows.Scan(&row.RequirementText, &row.MissedCount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
