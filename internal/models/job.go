package models

// SourceDomain identifies the job board a posting was found on.
type SourceDomain string

const (
	SourceLinkedIn SourceDomain = "linkedin"
	SourceIIMJobs  SourceDomain = "iimjobs"
	SourceNaukri   SourceDomain = "naukri"
	SourceOther    SourceDomain = "other"
)

// WorkMode is the declared work arrangement for a posting.
type WorkMode string

const (
	WorkModeOnsite WorkMode = "Onsite"
	WorkModeHybrid WorkMode = "Hybrid"
	WorkModeRemote WorkMode = "Remote"
)

// JDSource records where jd_text_clean ultimately came from.
type JDSource string

const (
	JDSourceFetched JDSource = "fetched"
	JDSourceEmail   JDSource = "email"
	JDSourceManual  JDSource = "manual"
	JDSourceNone    JDSource = "none"
)

// FetchStatus is the outcome of the JD Resolver's fetch attempt.
type FetchStatus string

const (
	FetchStatusOK           FetchStatus = "ok"
	FetchStatusFailed       FetchStatus = "failed"
	FetchStatusBlocked      FetchStatus = "blocked"
	FetchStatusLowQuality   FetchStatus = "low_quality"
	FetchStatusAIUnavailable FetchStatus = "ai_unavailable"
)

// JobStatus is the job's user-facing lifecycle status.
type JobStatus string

const (
	JobStatusNew            JobStatus = "NEW"
	JobStatusLinkOnly       JobStatus = "LINK_ONLY"
	JobStatusScored         JobStatus = "SCORED"
	JobStatusShortlisted    JobStatus = "SHORTLISTED"
	JobStatusReadyToApply   JobStatus = "READY_TO_APPLY"
	JobStatusApplied        JobStatus = "APPLIED"
	JobStatusRejected       JobStatus = "REJECTED"
	JobStatusArchived       JobStatus = "ARCHIVED"
)

// IsTerminal reports whether a status is one of the four statuses that ingestion
// and rescoring must never downgrade (spec §3 invariant).
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusReadyToApply, JobStatusApplied, JobStatusRejected, JobStatusArchived:
		return true
	default:
		return false
	}
}

// SystemStatus is the parallel machine-diagnostic status.
type SystemStatus string

const (
	SystemStatusNeedsManualJD    SystemStatus = "NEEDS_MANUAL_JD"
	SystemStatusAIUnavailable    SystemStatus = "AI_UNAVAILABLE"
	SystemStatusRejectedHeuristic SystemStatus = "REJECTED_HEURISTIC"
	SystemStatusInvalidURL       SystemStatus = "INVALID_URL"
	SystemStatusCanonicalDuplicate SystemStatus = "CANONICAL_DUPLICATE"
)

// Job is the canonical job-opportunity record, keyed by JobKey.
type Job struct {
	JobKey string `json:"job_key"`

	JobURL       string       `json:"job_url"`
	SourceDomain SourceDomain `json:"source_domain"`
	JobID        *string      `json:"job_id,omitempty"`

	Company           string   `json:"company,omitempty"`
	RoleTitle         string   `json:"role_title,omitempty"`
	Location          string   `json:"location,omitempty"`
	WorkMode          WorkMode `json:"work_mode,omitempty"`
	Seniority         string   `json:"seniority,omitempty"`
	ExperienceYearsMin *int    `json:"experience_years_min,omitempty"`
	ExperienceYearsMax *int    `json:"experience_years_max,omitempty"`

	MustKeywords   []string `json:"must_keywords"`
	NiceKeywords   []string `json:"nice_keywords"`
	RejectKeywords []string `json:"reject_keywords"`
	Skills         []string `json:"skills"`

	JDTextClean string      `json:"jd_text_clean,omitempty"`
	JDSource    JDSource    `json:"jd_source"`
	FetchStatus FetchStatus `json:"fetch_status"`
	FetchDebug  FetchDebug  `json:"fetch_debug"`

	PrimaryTargetID string   `json:"primary_target_id,omitempty"`
	ScoreMust       int      `json:"score_must"`
	ScoreNice       int      `json:"score_nice"`
	FinalScore      *int     `json:"final_score,omitempty"`
	RejectTriggered bool     `json:"reject_triggered"`
	RejectReasons   []string `json:"reject_reasons,omitempty"`
	ReasonTopMatches string  `json:"reason_top_matches,omitempty"`

	Status       JobStatus     `json:"status"`
	SystemStatus *SystemStatus `json:"system_status,omitempty"`

	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
	LastScoredAt *int64 `json:"last_scored_at,omitempty"`
	AppliedAt    *int64 `json:"applied_at,omitempty"`
	RejectedAt   *int64 `json:"rejected_at,omitempty"`
	ArchivedAt   *int64 `json:"archived_at,omitempty"`
}

// FetchDebug captures the JD Resolver's reasoning for later inspection (spec §4.2).
type FetchDebug struct {
	Confidence    string `json:"confidence,omitempty"` // low|medium|high
	PolicyLabel   string `json:"policy_label,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	PriorStatus   string `json:"prior_status,omitempty"`
	FetchTimeoutMS int   `json:"fetch_timeout_ms,omitempty"`
}
