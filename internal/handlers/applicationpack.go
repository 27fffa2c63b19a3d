package handlers

import (
	"context"
	"net/http"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/models"
	"github.com/jobops/triage/internal/resumepack"
)

func (h *Handlers) resolveProfile(ctx context.Context, jobKey string) (models.ResumeProfile, error) {
	if profileID, ok, err := h.Storage.Drafts.JobProfilePreference(ctx, jobKey); err == nil && ok {
		if profile, found, err := h.Storage.Profiles.Get(ctx, profileID); err == nil && found {
			return *profile, nil
		}
	}
	profile, ok, err := h.Storage.Profiles.Primary(ctx)
	if err != nil {
		return models.ResumeProfile{}, err
	}
	if !ok {
		return models.ResumeProfile{}, apperr.New(apperr.KindNotFound, "no primary resume profile configured")
	}
	return *profile, nil
}

func (h *Handlers) resolveTarget(ctx context.Context, job *models.Job) (models.Target, error) {
	if job.PrimaryTargetID != "" {
		if target, ok, err := h.Storage.Targets.Get(ctx, job.PrimaryTargetID); err == nil && ok {
			return *target, nil
		}
	}
	return models.Target{}, apperr.New(apperr.KindNotFound, "job has no resolvable primary_target_id")
}

func (h *Handlers) gateConfig() resumepack.GateConfig {
	return resumepack.GateConfig{
		Mode:                h.PackConfig.OnePageMode,
		MinSummaryChars:     h.PackConfig.MinSummaryChars,
		MinBullets:          h.PackConfig.MinBullets,
		MinATSScore:         h.PackConfig.MinATSScore,
		MinMustCoveragePct:  h.PackConfig.MinMustCoveragePct,
		MaxPages:            1,
	}
}

// renderAndCountPages renders the pack's PDF and returns its physical page
// count for the readiness gate; a render or count failure is logged and
// returns 0, which tells RunGate to skip the physical check rather than fail
// a draft it was unable to measure.
func (h *Handlers) renderAndCountPages(job *models.Job, profile models.ResumeProfile, draft *models.ResumeDraft) int {
	pdfBytes, err := h.PDFRenderer.RenderPack(job, profile, draft.Pack)
	if err != nil {
		draft.PDFStatus = "error"
		draft.PDFError = err.Error()
		h.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("failed to render application pack PDF")
		return 0
	}
	pageCount, err := resumepack.CountPages(pdfBytes)
	if err != nil {
		draft.PDFStatus = "error"
		draft.PDFError = err.Error()
		h.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("failed to count application pack PDF pages")
		return 0
	}
	draft.PDFStatus = "rendered"
	draft.PDFError = ""
	return pageCount
}

// AutoPilot handles POST /jobs/{job_key}/auto-pilot: a combined rescore plus
// application-pack generate in one call.
func (h *Handlers) AutoPilot(w http.ResponseWriter, r *http.Request, jobKey string) {
	ctx := r.Context()
	job, ok, err := h.Storage.Jobs.GetJob(ctx, jobKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, apperr.New(apperr.KindNotFound, "unknown job_key"))
		return
	}

	if _, err := h.rescoreJob(ctx, job, "auto_pilot"); err != nil {
		writeErr(w, err)
		return
	}

	profile, err := h.resolveProfile(ctx, jobKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	target, err := h.resolveTarget(ctx, job)
	if err != nil {
		writeErr(w, err)
		return
	}

	existing, _, err := h.Storage.Drafts.GetDraft(ctx, jobKey, profile.ID)
	if err != nil {
		writeErr(w, err)
		return
	}

	draft, err := resumepack.Generate(ctx, existing, resumepack.GenerateInput{
		Job: job, Profile: profile, Target: target,
		ATSTargetMode: "all", Polish: h.Provider, OnePageMode: h.PackConfig.OnePageMode,
		Gate: h.gateConfig(),
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := h.Storage.Drafts.UpsertDraft(ctx, draft); err != nil {
		writeErr(w, err)
		return
	}
	h.appendDraftVersion(ctx, draft, "generate")

	writeOK(w, map[string]interface{}{"job": job, "draft": draft})
}

// ApplicationPackReview handles POST /jobs/{job_key}/application-pack/review
// body {summary?, bullets?, cover_letter?, focus_keywords?, ats_target_mode?}.
func (h *Handlers) ApplicationPackReview(w http.ResponseWriter, r *http.Request, jobKey string) {
	ctx := r.Context()
	var edited models.PackContent
	if err := decodeAndValidate(r, &edited); err != nil {
		writeErr(w, err)
		return
	}

	job, profile, target, draft, err := h.loadDraftContext(ctx, jobKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	if edited.ATSTargetMode == "" {
		edited.ATSTargetMode = draft.Pack.ATSTargetMode
	}

	check := resumepack.ManualEdit(draft, job, target, profile, edited, h.gateConfig())
	if err := h.Storage.Drafts.UpsertDraft(ctx, draft); err != nil {
		writeErr(w, err)
		return
	}
	h.appendDraftVersion(ctx, draft, "manual_edit")

	writeOK(w, map[string]interface{}{"draft": draft, "check": check})
}

// ApplicationPackApprove handles POST /jobs/{job_key}/application-pack/approve.
func (h *Handlers) ApplicationPackApprove(w http.ResponseWriter, r *http.Request, jobKey string) {
	ctx := r.Context()
	job, profile, _, draft, err := h.loadDraftContext(ctx, jobKey)
	if err != nil {
		writeErr(w, err)
		return
	}

	pageCount := h.renderAndCountPages(job, profile, draft)
	check, err := resumepack.Approve(draft, job, h.gateConfig(), pageCount)
	if err != nil {
		writeJSON(w, apperr.HTTPStatus(err), map[string]interface{}{"ok": false, "check": check, "detail": err.Error()})
		return
	}

	if err := h.Storage.Drafts.UpsertDraft(ctx, draft); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Storage.Jobs.UpsertJob(ctx, job); err != nil {
		writeErr(w, err)
		return
	}
	h.appendDraftVersion(ctx, draft, "approve")

	if h.RRExport != nil {
		ref, err := h.RRExport.Push(ctx, draft.RRExport)
		if err != nil {
			draft.ExternalResumeStatus = "error"
			draft.ExternalResumeError = err.Error()
		} else {
			draft.ExternalResumeRef = ref
			draft.ExternalResumeStatus = "exported"
		}
		_ = h.Storage.Drafts.UpsertDraft(ctx, draft)
	}

	writeOK(w, map[string]interface{}{"job": job, "draft": draft, "check": check})
}

// ApplicationPackRevert handles POST /jobs/{job_key}/application-pack/revert
// body {version_no}.
func (h *Handlers) ApplicationPackRevert(w http.ResponseWriter, r *http.Request, jobKey string) {
	ctx := r.Context()
	var req struct {
		VersionNo int `json:"version_no" validate:"required,min=1"`
	}
	if err := decodeAndValidate(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	_, _, _, draft, err := h.loadDraftContext(ctx, jobKey)
	if err != nil {
		writeErr(w, err)
		return
	}

	version, ok, err := h.Storage.Drafts.GetVersion(ctx, draft.ID, req.VersionNo)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, apperr.New(apperr.KindNotFound, "unknown draft version"))
		return
	}

	draft = resumepack.Revert(draft, *version)
	draft.Status = models.DraftStatusContentReviewRequired
	if err := h.Storage.Drafts.UpsertDraft(ctx, draft); err != nil {
		writeErr(w, err)
		return
	}
	h.appendDraftVersion(ctx, draft, "revert")

	writeOK(w, map[string]interface{}{"draft": draft})
}

func (h *Handlers) loadDraftContext(ctx context.Context, jobKey string) (*models.Job, models.ResumeProfile, models.Target, *models.ResumeDraft, error) {
	job, ok, err := h.Storage.Jobs.GetJob(ctx, jobKey)
	if err != nil {
		return nil, models.ResumeProfile{}, models.Target{}, nil, err
	}
	if !ok {
		return nil, models.ResumeProfile{}, models.Target{}, nil, apperr.New(apperr.KindNotFound, "unknown job_key")
	}

	profile, err := h.resolveProfile(ctx, jobKey)
	if err != nil {
		return nil, models.ResumeProfile{}, models.Target{}, nil, err
	}
	target, err := h.resolveTarget(ctx, job)
	if err != nil {
		return nil, models.ResumeProfile{}, models.Target{}, nil, err
	}

	draft, ok, err := h.Storage.Drafts.GetDraft(ctx, jobKey, profile.ID)
	if err != nil {
		return nil, models.ResumeProfile{}, models.Target{}, nil, err
	}
	if !ok {
		return nil, models.ResumeProfile{}, models.Target{}, nil, apperr.New(apperr.KindNotFound, "no application pack draft exists for this job; generate one first")
	}
	return job, profile, target, draft, nil
}

func (h *Handlers) appendDraftVersion(ctx context.Context, draft *models.ResumeDraft, sourceAction string) {
	existing, err := h.Storage.Drafts.ListVersions(ctx, draft.ID)
	if err != nil {
		h.Logger.Warn().Err(err).Str("draft_id", draft.ID).Msg("failed to list draft versions")
		return
	}
	version := models.DraftVersion{
		ID: common.NewID("draftver"), DraftID: draft.ID,
		VersionNo: resumepack.NextVersionNo(existing), SourceAction: sourceAction,
		Pack: draft.Pack, ATS: draft.ATS, RRExport: draft.RRExport,
		CreatedAt: common.NowMillis(),
	}
	if err := h.Storage.Drafts.AppendVersion(ctx, version); err != nil {
		h.Logger.Warn().Err(err).Str("draft_id", draft.ID).Msg("failed to append draft version")
	}
}
