package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jobops/triage/internal/evidence"
	"github.com/jobops/triage/internal/models"
)

// RebuildArchived handles POST /jobs/evidence/rebuild-archived body
// {mode, limit, cursor_job_key, ...}. Only mode/limit/cursor_job_key drive the
// candidate-set query; delay_ms/force/profile_id/profile_only/max_tokens are
// accepted but this pass re-scores every candidate identically (no per-job
// skip/override policy is implemented yet).
func (h *Handlers) RebuildArchived(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Mode         string `json:"mode" validate:"omitempty,oneof=retry_failed all_archived"`
		Limit        int    `json:"limit" validate:"omitempty,min=1"`
		CursorJobKey string `json:"cursor_job_key"`
	}
	if err := decodeAndValidate(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Limit <= 0 || req.Limit > 10 {
		req.Limit = 10
	}
	if req.Mode == "" {
		req.Mode = "retry_failed"
	}

	jobs, err := h.Storage.Jobs.ListArchivedForRebuild(ctx, req.Mode, req.CursorJobKey, req.Limit)
	if err != nil {
		writeErr(w, err)
		return
	}

	rebuilt := make([]string, 0, len(jobs))
	var nextCursor string
	for _, job := range jobs {
		if _, err := h.rescoreJob(ctx, job, "rebuild_archived"); err != nil {
			h.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("rebuild-archived rescore failed")
			continue
		}
		rebuilt = append(rebuilt, job.JobKey)
		nextCursor = job.JobKey
	}

	writeOK(w, map[string]interface{}{
		"rebuilt":             rebuilt,
		"next_cursor_job_key": nextCursor,
	})
}

// GapReport handles GET /jobs/evidence/gap-report?status&top&min_missed&profile_id.
func (h *Handlers) GapReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	top := 20
	if v, err := strconv.Atoi(q.Get("top")); err == nil && v > 0 {
		top = v
	}
	minMissed := 2
	if v, err := strconv.Atoi(q.Get("min_missed")); err == nil && v > 0 {
		minMissed = v
	}

	rows, err := h.Storage.Jobs.MissedMustRequirements(ctx, q.Get("status"), minMissed, top)
	if err != nil {
		writeErr(w, err)
		return
	}

	corpus := evidence.ProfileCorpus(h.gapReportCorpusProfile(ctx, q.Get("profile_id")))

	classified := make([]models.GapReportRow, 0, len(rows))
	for _, row := range rows {
		classified = append(classified, evidence.ClassifyGap(row.RequirementText, row.MissedCount, corpus, h.Synonyms))
	}
	writeOK(w, classified)
}

// gapReportCorpusProfile resolves the candidate material to classify gaps
// against: the requested profile_id if given and found, else the primary
// profile, else an empty corpus (every requirement then reads as a true gap).
func (h *Handlers) gapReportCorpusProfile(ctx context.Context, profileID string) models.ProfileJSON {
	if profileID != "" {
		if profile, ok, err := h.Storage.Profiles.Get(ctx, profileID); err == nil && ok {
			return profile.Profile
		}
	}
	if profile, ok, err := h.Storage.Profiles.Primary(ctx); err == nil && ok {
		return profile.Profile
	}
	return models.ProfileJSON{}
}
