// Package resumepack implements the Application Pack Manager: the
// generate/manual_edit/approve/revert state machine for a tailored résumé
// draft, its ATS scoring and one-page readiness gate, and the external
// résumé export contract.
package resumepack

import (
	"context"
	"strings"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/models"
)

// GenerateInput is everything Generate needs to produce or regenerate a draft.
type GenerateInput struct {
	Job             *models.Job
	Profile         models.ResumeProfile
	Target          models.Target
	FocusKeywords   []string // caller-selected; falls back to job.MustKeywords when empty
	ATSTargetMode   string   // "all" or "selected_only"
	Force           bool     // required to regenerate once status=READY_TO_APPLY
	Polish          llm.Provider // optional LLM polish pass; nil skips it
	OnePageMode     string       // "soft" or "hard"
	Gate            GateConfig
}

// Generate produces (or regenerates) a draft's tailored content and scores
// it, returning the draft in CONTENT_REVIEW_REQUIRED. It does not run the
// readiness gate, and it never sets NEEDS_AI: a nil Polish provider skips the
// polish pass.
func Generate(ctx context.Context, existing *models.ResumeDraft, input GenerateInput) (*models.ResumeDraft, error) {
	if existing != nil && existing.Status == models.DraftStatusReadyToApply && !input.Force {
		return nil, apperr.New(apperr.KindConflict, "draft is READY_TO_APPLY; pass force=true to regenerate")
	}

	focus := input.FocusKeywords
	if len(focus) == 0 {
		focus = input.Job.MustKeywords
	}
	atsMode := input.ATSTargetMode
	if atsMode == "" {
		atsMode = "all"
	}

	pack := Tailor(ctx, input.Profile, input.Target, input.Job, focus, atsMode, input.Polish)
	pack = enforceOnePageCaps(pack, input.OnePageMode)

	ats := ScoreATS(pack, input.Job, input.Target, atsMode)

	draft := existing
	priorVersion := 0
	if draft == nil {
		draft = &models.ResumeDraft{
			ID:        common.NewID("draft"),
			JobKey:    input.Job.JobKey,
			ProfileID: input.Profile.ID,
			CreatedAt: common.NowMillis(),
		}
	} else {
		priorVersion = draft.RRExport.Metadata.Version
	}
	draft.Pack = pack
	draft.ATS = ats
	draft.RRExport = BuildRRExport(input.Profile, input.Job, pack, priorVersion)
	draft.Status = models.DraftStatusContentReviewRequired
	draft.UpdatedAt = common.NowMillis()

	return draft, nil
}

// ManualEdit applies a caller-supplied edit to pack fields and re-scores,
// advancing the draft to READY_FOR_EXPORT only if the readiness gate passes.
// No PDF has been rendered at this point, so the physical page-count check
// is skipped; Approve re-runs the gate against a freshly rendered PDF.
func ManualEdit(draft *models.ResumeDraft, job *models.Job, target models.Target, profile models.ResumeProfile, edited models.PackContent, gate GateConfig) CheckResult {
	draft.Pack = edited
	draft.ATS = ScoreATS(edited, job, target, edited.ATSTargetMode)
	draft.RRExport = BuildRRExport(profile, job, edited, draft.RRExport.Metadata.Version)
	draft.UpdatedAt = common.NowMillis()

	check := RunGate(draft, job, gate, 0)
	if check.Passed {
		draft.Status = models.DraftStatusReadyForExport
	}
	return check
}

// Approve transitions a draft (and its job) to READY_TO_APPLY, enforcing the
// hard readiness gate regardless of the configured one-page mode. pageCount
// is the physical page count of the PDF the caller just rendered for this
// draft (0 if rendering failed, in which case the physical check is skipped
// and the structural checks alone decide the outcome).
func Approve(draft *models.ResumeDraft, job *models.Job, gate GateConfig, pageCount int) (CheckResult, error) {
	hardGate := gate
	hardGate.Mode = "hard"
	check := RunGate(draft, job, hardGate, pageCount)
	if !check.Passed {
		return check, apperr.New(apperr.KindInvalidInput, "draft fails readiness gate: "+strings.Join(check.FailedChecks, ", "))
	}
	draft.Status = models.DraftStatusReadyToApply
	draft.UpdatedAt = common.NowMillis()
	job.Status = models.JobStatusReadyToApply
	job.UpdatedAt = common.NowMillis()
	return check, nil
}

// Revert copies version's payload back over draft and returns the draft,
// ready for the caller to append a new "revert" DraftVersion row.
func Revert(draft *models.ResumeDraft, version models.DraftVersion) *models.ResumeDraft {
	draft.Pack = version.Pack
	draft.ATS = version.ATS
	draft.RRExport = version.RRExport
	draft.UpdatedAt = common.NowMillis()
	return draft
}

// NextVersionNo returns the next monotonic version_no for a draft given its
// existing versions (empty slice starts at 1).
func NextVersionNo(existing []models.DraftVersion) int {
	max := 0
	for _, v := range existing {
		if v.VersionNo > max {
			max = v.VersionNo
		}
	}
	return max + 1
}
