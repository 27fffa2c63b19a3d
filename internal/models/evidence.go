package models

// RequirementType classifies a requirement extracted from a job description.
type RequirementType string

const (
	RequirementMust       RequirementType = "must"
	RequirementNice       RequirementType = "nice"
	RequirementReject     RequirementType = "reject"
	RequirementConstraint RequirementType = "constraint"
)

// EvidenceSource records which part of the candidate's material satisfied a
// requirement, in the confidence order the spec fixes: summary > bullets > JD.
type EvidenceSource string

const (
	EvidenceSourceSummary EvidenceSource = "resume_summary"
	EvidenceSourceBullets EvidenceSource = "resume_bullets"
	EvidenceSourceJD      EvidenceSource = "jd_text"
	EvidenceSourceNone    EvidenceSource = "none"
)

// Confidence values are fixed by the spec: summary=95, bullets=88, JD=70, none=0.
const (
	ConfidenceSummary = 95
	ConfidenceBullets = 88
	ConfidenceJD      = 70
	ConfidenceNone    = 0
)

// JobEvidence is one requirement's match result against a candidate's resume/JD.
type JobEvidence struct {
	JobKey          string          `json:"job_key"`
	RequirementText string          `json:"requirement_text"`
	RequirementType RequirementType `json:"requirement_type"`

	EvidenceText   string         `json:"evidence_text,omitempty"` // <=220 chars
	EvidenceSource EvidenceSource `json:"evidence_source"`
	Confidence     int            `json:"confidence_score"`
	Matched        bool           `json:"matched"`
	Notes          string         `json:"notes,omitempty"`
}

// GapKind classifies a frequently-missed must-requirement for the read-only
// gap report (spec §4.5).
type GapKind string

const (
	GapMatched        GapKind = "matched"
	GapVocabularyGap  GapKind = "vocabulary_gap"
	GapTrueGap        GapKind = "true_gap"
)

// GapReportRow is one row of the evidence gap report.
type GapReportRow struct {
	RequirementText  string  `json:"requirement_text"`
	MissedCount      int     `json:"missed_count"`
	Kind             GapKind `json:"kind"`
	SynonymHit       string  `json:"synonym_hit,omitempty"`
	RewriteSuggestion string `json:"rewrite_suggestion,omitempty"`
}
