package sqlite

const schemaSQL = `
-- Canonical job-opportunity records, keyed by job_key (spec §3/§4.9).
CREATE TABLE IF NOT EXISTS jobs (
	job_key TEXT PRIMARY KEY,
	job_url TEXT NOT NULL,
	source_domain TEXT NOT NULL,
	job_id TEXT,

	company TEXT,
	role_title TEXT,
	location TEXT,
	work_mode TEXT,
	seniority TEXT,
	experience_years_min INTEGER,
	experience_years_max INTEGER,

	must_keywords_json TEXT NOT NULL DEFAULT '[]',
	nice_keywords_json TEXT NOT NULL DEFAULT '[]',
	reject_keywords_json TEXT NOT NULL DEFAULT '[]',
	skills_json TEXT NOT NULL DEFAULT '[]',

	jd_text_clean TEXT,
	jd_source TEXT,
	fetch_status TEXT,
	fetch_debug_json TEXT NOT NULL DEFAULT '{}',

	primary_target_id TEXT,
	score_must INTEGER NOT NULL DEFAULT 0,
	score_nice INTEGER NOT NULL DEFAULT 0,
	final_score INTEGER,
	reject_triggered INTEGER NOT NULL DEFAULT 0,
	reject_reasons_json TEXT NOT NULL DEFAULT '[]',
	reason_top_matches TEXT,

	status TEXT NOT NULL,
	system_status TEXT,

	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	last_scored_at INTEGER,
	applied_at INTEGER,
	rejected_at INTEGER,
	archived_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at);

-- Per-requirement evidence rows (spec §4.5). Optional table: callers must
-- feature-detect its presence via Capabilities before relying on it.
CREATE TABLE IF NOT EXISTS job_evidence (
	job_key TEXT NOT NULL,
	requirement_text TEXT NOT NULL,
	requirement_type TEXT NOT NULL,
	evidence_text TEXT,
	evidence_source TEXT NOT NULL,
	confidence_score INTEGER NOT NULL,
	matched INTEGER NOT NULL,
	notes TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (job_key, requirement_text, requirement_type)
);

CREATE INDEX IF NOT EXISTS idx_job_evidence_job_key ON job_evidence(job_key);

-- Target profiles a candidate is scoring jobs against (spec §4.4).
CREATE TABLE IF NOT EXISTS targets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	primary_role TEXT,
	seniority_pref TEXT,
	location_pref TEXT,
	must_keywords_json TEXT NOT NULL DEFAULT '[]',
	nice_keywords_json TEXT NOT NULL DEFAULT '[]',
	reject_keywords_json TEXT NOT NULL DEFAULT '[]',
	rubric_profile TEXT NOT NULL DEFAULT 'auto',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

-- Candidate résumé profiles; exactly one is is_primary at a time (app-level
-- invariant, enforced in code rather than a CHECK constraint so the error
-- surfaces as an apperr.Kind rather than a raw SQL failure).
CREATE TABLE IF NOT EXISTS resume_profiles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	is_primary INTEGER NOT NULL DEFAULT 0,
	profile_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

-- Per-job override of which resume profile applies (optional table).
CREATE TABLE IF NOT EXISTS job_profile_preferences (
	job_key TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL
);

-- Latest tailored application pack per (job_key, profile_id) (spec §4.7).
CREATE TABLE IF NOT EXISTS resume_drafts (
	id TEXT PRIMARY KEY,
	job_key TEXT NOT NULL,
	profile_id TEXT NOT NULL,
	pack_json TEXT NOT NULL,
	ats_json TEXT NOT NULL,
	rr_export_json TEXT NOT NULL,
	status TEXT NOT NULL,
	external_resume_ref TEXT,
	external_resume_status TEXT,
	external_resume_error TEXT,
	pdf_ref TEXT,
	pdf_status TEXT,
	pdf_error TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_resume_drafts_job_profile ON resume_drafts(job_key, profile_id);

-- Append-only draft version log (optional table; spec §4.7, §8 "version_no
-- strictly increasing per draft_id").
CREATE TABLE IF NOT EXISTS resume_draft_versions (
	id TEXT PRIMARY KEY,
	draft_id TEXT NOT NULL,
	version_no INTEGER NOT NULL,
	source_action TEXT NOT NULL,
	pack_json TEXT NOT NULL,
	ats_json TEXT NOT NULL,
	rr_export_json TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_draft_versions_draft_version ON resume_draft_versions(draft_id, version_no);

-- Append-only scoring-pipeline telemetry (optional table; spec §4.4, §3).
CREATE TABLE IF NOT EXISTS scoring_runs (
	id TEXT PRIMARY KEY,
	job_key TEXT NOT NULL,
	source TEXT NOT NULL,
	final_status TEXT NOT NULL,
	heuristic_passed INTEGER NOT NULL,
	heuristic_reasons_json TEXT NOT NULL DEFAULT '[]',
	stage_metrics_json TEXT NOT NULL DEFAULT '[]',
	ai_model TEXT,
	ai_tokens_in INTEGER NOT NULL DEFAULT 0,
	ai_tokens_out INTEGER NOT NULL DEFAULT 0,
	ai_tokens_total INTEGER NOT NULL DEFAULT 0,
	ai_latency_ms INTEGER NOT NULL DEFAULT 0,
	total_latency_ms INTEGER NOT NULL DEFAULT 0,
	final_score INTEGER,
	reject_triggered INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scoring_runs_job_key ON scoring_runs(job_key, created_at);

-- Contacts surfaced as potential_contacts (spec §4.4) or added manually, and
-- the outreach touchpoints logged against them (optional tables).
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	title TEXT,
	company TEXT,
	profile_url TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_touchpoints (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL,
	job_key TEXT NOT NULL,
	channel TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_touchpoints_contact_job_channel ON contact_touchpoints(contact_id, job_key, channel);
`

// InitSchema creates every table and index the schema string defines,
// idempotently, so it is safe to call on every process start.
func (d *DB) InitSchema() error {
	_, err := d.db.Exec(schemaSQL)
	return err
}
