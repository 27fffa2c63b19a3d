package models

// DraftStatus is the Application Pack Manager's state machine status (spec §4.7).
type DraftStatus string

const (
	DraftStatusContentReviewRequired DraftStatus = "CONTENT_REVIEW_REQUIRED"
	DraftStatusReadyForExport        DraftStatus = "READY_FOR_EXPORT"
	DraftStatusReadyToApply          DraftStatus = "READY_TO_APPLY"
	DraftStatusNeedsAI               DraftStatus = "NEEDS_AI"
	DraftStatusError                 DraftStatus = "ERROR"
)

// ResumeDraft is the latest tailored application pack for a (job, profile) pair.
type ResumeDraft struct {
	ID        string `json:"id"`
	JobKey    string `json:"job_key"`
	ProfileID string `json:"profile_id"`

	Pack       PackContent    `json:"pack_json"`
	ATS        ATSResult      `json:"ats_json"`
	RRExport   RRExport       `json:"rr_export_json"`
	Status     DraftStatus    `json:"status"`

	ExternalResumeRef   string `json:"external_resume_ref,omitempty"`
	ExternalResumeStatus string `json:"external_resume_status,omitempty"`
	ExternalResumeError string `json:"external_resume_error,omitempty"`
	PDFRef    string `json:"pdf_ref,omitempty"`
	PDFStatus string `json:"pdf_status,omitempty"`
	PDFError  string `json:"pdf_error,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// PackContent is the tailored content body of a draft.
type PackContent struct {
	Summary       string   `json:"summary" validate:"omitempty,max=2000"`
	Bullets       []string `json:"bullets" validate:"omitempty,max=20,dive,max=500"`
	CoverLetter   string   `json:"cover_letter" validate:"omitempty,max=5000"`
	FocusKeywords []string `json:"focus_keywords" validate:"omitempty,dive,required"`
	ATSTargetMode string   `json:"ats_target_mode" validate:"omitempty,oneof=all selected_only"` // "all" or "selected_only"
}

// ATSResult is the ATS coverage score for a draft (spec §4.7).
type ATSResult struct {
	Score           int      `json:"score"`
	MustCoveragePct int      `json:"must_coverage_pct"`
	NiceCoveragePct int      `json:"nice_coverage_pct"`
	MissingKeywords []string `json:"missing_keywords"`
	Notes           string   `json:"notes,omitempty"`
	Rubric          RubricResult `json:"rubric"`
}

// RubricResult preserves the target_rubric/pm_rubric duality (DESIGN.md Open
// Question 1): Rubric is the current name, PMRubric is the legacy alias with the
// identical value, both populated whenever RubricProfile == pm_v1.
type RubricResult struct {
	Profile    RubricProfile      `json:"profile"`
	Dimensions map[string]int     `json:"dimensions"`
	PMRubric   map[string]int     `json:"pm_rubric,omitempty"`
}

// RRExport is the external-résumé contract payload (spec §6).
type RRExport struct {
	Metadata   RRExportMetadata `json:"metadata"`
	Basics     RRBasics         `json:"basics"`
	Sections   RRSections       `json:"sections"`
	JobContext RRJobContext     `json:"job_context"`
}

type RRExportMetadata struct {
	Source        string   `json:"source"`
	ContractID    string   `json:"contract_id"`
	SchemaVersion int      `json:"schema_version"`
	Version       int      `json:"version"`
	ExportedAt    int64    `json:"exported_at"`
	TemplateID    string   `json:"template_id,omitempty"`
	Renderer      string   `json:"renderer"`
	ContractValid bool     `json:"contract_valid"`
	ImportReady   bool     `json:"import_ready"`
	ContractErrors []string `json:"contract_errors,omitempty"`
	ImportErrors   []string `json:"import_errors,omitempty"`
}

type RRBasics struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

type RRSections struct {
	Experience []ProfileExperience `json:"experience"`
	Skills     []string            `json:"skills"`
	Highlights []RRHighlight       `json:"highlights"`
}

type RRHighlight struct {
	Text string `json:"text"`
}

type RRJobContext struct {
	JobKey    string `json:"job_key"`
	RoleTitle string `json:"role_title"`
	Company   string `json:"company"`
	JobURL    string `json:"job_url"`
}

// DraftVersion is an immutable, append-only snapshot of a draft's content.
type DraftVersion struct {
	ID           string      `json:"id"`
	DraftID      string      `json:"draft_id"`
	VersionNo    int         `json:"version_no"` // monotonic per draft_id
	SourceAction string      `json:"source_action"` // generate|manual_edit|approve|revert|pdf_export
	Pack         PackContent `json:"pack_json"`
	ATS          ATSResult   `json:"ats_json"`
	RRExport     RRExport    `json:"rr_export_json"`
	CreatedAt    int64       `json:"created_at"`
}
