package handlers

import (
	"context"
	"net/http"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/evidence"
	"github.com/jobops/triage/internal/extractor"
	"github.com/jobops/triage/internal/models"
	"github.com/jobops/triage/internal/scoring"
)

// Rescore handles POST /jobs/{job_key}/rescore.
func (h *Handlers) Rescore(w http.ResponseWriter, r *http.Request, jobKey string) {
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
	if job.JDTextClean == "" && job.RoleTitle == "" {
		writeErr(w, apperr.New(apperr.KindInvalidInput, "job has neither jd_text_clean nor role_title to score against"))
		return
	}

	result, err := h.rescoreJob(ctx, job, "http_rescore")
	if err != nil {
		writeErr(w, err)
		return
	}

	writeOK(w, map[string]interface{}{
		"job_key":           job.JobKey,
		"final_score":       job.FinalScore,
		"status":            job.Status,
		"primary_target_id": job.PrimaryTargetID,
		"potential_contacts": result.PotentialContacts,
	})
}

type manualJDRequest struct {
	JDTextClean string `json:"jd_text_clean" validate:"required,min=200"`
}

// ManualJD handles POST /jobs/{job_key}/manual-jd body {jd_text_clean}.
func (h *Handlers) ManualJD(w http.ResponseWriter, r *http.Request, jobKey string) {
	ctx := r.Context()
	var req manualJDRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	job, ok, err := h.Storage.Jobs.GetJob(ctx, jobKey)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, apperr.New(apperr.KindNotFound, "unknown job_key"))
		return
	}

	job.JDTextClean = req.JDTextClean
	job.JDSource = models.JDSourceManual
	job.FetchStatus = models.FetchStatusOK
	job.UpdatedAt = common.NowMillis()

	if _, err := h.rescoreJob(ctx, job, "manual_jd"); err != nil {
		writeErr(w, err)
		return
	}
	writeOK(w, job)
}

type scorePendingRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=500"`
	Status string `json:"status"`
}

// ScorePending handles POST /score-pending body {limit, status}. A missing
// or malformed body is tolerated (every field has a default); a body that
// does decode but sets an out-of-range limit fails validation.
func (h *Handlers) ScorePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scorePendingRequest
	_ = decodeJSON(r, &req)
	if err := validate.Struct(&req); err != nil {
		writeErr(w, apperr.Wrap(apperr.KindInvalidInput, "request failed validation: "+fieldErrors(err), err))
		return
	}
	if req.Limit <= 0 {
		req.Limit = 25
	}

	statuses := []models.JobStatus{models.JobStatusNew, models.JobStatusScored, models.JobStatusLinkOnly}
	if req.Status != "" {
		statuses = nil
		for _, s := range common.ParseFlexibleList(req.Status) {
			statuses = append(statuses, models.JobStatus(s))
		}
	}

	jobs, err := h.Storage.Jobs.ListByStatuses(ctx, statuses, req.Limit)
	if err != nil {
		writeErr(w, err)
		return
	}

	rescored := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if _, err := h.rescoreJob(ctx, job, "score_pending"); err != nil {
			h.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("score-pending rescore failed")
			continue
		}
		rescored = append(rescored, job.JobKey)
	}
	writeOK(w, map[string]interface{}{"rescored": rescored})
}

func (h *Handlers) rescoreJob(ctx context.Context, job *models.Job, source string) (scoring.Result, error) {
	targets, err := h.Storage.Jobs.ListTargets(ctx)
	if err != nil {
		return scoring.Result{}, err
	}

	result := scoring.Run(ctx, h.Provider, scoring.Input{
		Job: job, Targets: targets, AIAvailable: h.Provider != nil, Source: source,
	}, h.ScoringCfg)

	if err := h.Storage.Jobs.UpsertJob(ctx, job); err != nil {
		return result, err
	}
	if err := h.Storage.ScoringRuns.Insert(ctx, result.ScoringRun); err != nil {
		h.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("failed to record scoring run telemetry")
	}

	if profile, perr := h.Storage.Jobs.PrimaryResumeProfile(ctx); perr == nil {
		ex := extractor.Extracted{
			MustKeywords: job.MustKeywords, NiceKeywords: job.NiceKeywords,
			RejectKeywords: job.RejectKeywords, Skills: job.Skills,
		}
		rows := evidence.BuildRows(job.JobKey, ex, job.JDTextClean, profile)
		if err := h.Storage.Jobs.UpsertEvidence(ctx, rows); err != nil {
			h.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("failed to upsert evidence rows")
		}
	}

	return result, nil
}
