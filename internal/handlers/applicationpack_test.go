package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobops/triage/internal/models"
)

func TestAutoPilotGeneratesDraftInContentReview(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()

	job := testJob("job-pack-1", models.JobStatusScored)
	job.PrimaryTargetID = "t1"
	if err := mgr.Jobs.UpsertJob(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := mgr.Targets.Upsert(ctx, models.Target{ID: "t1", Name: "Staff Eng"}); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	profile := models.ResumeProfile{
		ID: "p1", Name: "Primary",
		Profile: models.ProfileJSON{
			Basics:  models.ProfileBasics{Name: "Ada Lovelace", Email: "ada@example.com"},
			Summary: "Staff engineer with a decade of distributed systems experience.",
			Experience: []models.ProfileExperience{
				{Company: "Acme", Role: "Staff Engineer", Bullets: []string{"Led platform migration", "Owned on-call rotation"}},
			},
			Skills: []string{"Go", "Kubernetes"},
		},
	}
	if err := mgr.Profiles.Upsert(ctx, profile, true); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-1/auto-pilot", nil)
	h.AutoPilot(rec, req, "job-pack-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	draft, ok, err := mgr.Drafts.GetDraft(ctx, "job-pack-1", "p1")
	if err != nil || !ok {
		t.Fatalf("GetDraft: ok=%v err=%v", ok, err)
	}
	if draft.Status != models.DraftStatusContentReviewRequired {
		t.Fatalf("expected CONTENT_REVIEW_REQUIRED, got %s", draft.Status)
	}

	versions, err := mgr.Drafts.ListVersions(ctx, draft.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].SourceAction != "generate" {
		t.Fatalf("expected 1 'generate' version, got %+v", versions)
	}
}

func TestApplicationPackApproveFailsGateWhenImportNotReady(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()

	job := testJob("job-pack-2", models.JobStatusScored)
	job.PrimaryTargetID = "t1"
	if err := mgr.Jobs.UpsertJob(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := mgr.Targets.Upsert(ctx, models.Target{ID: "t1", Name: "Staff Eng"}); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	profile := models.ResumeProfile{ID: "p1", Name: "Primary", Profile: models.ProfileJSON{Basics: models.ProfileBasics{Name: "Ada"}}}
	if err := mgr.Profiles.Upsert(ctx, profile, true); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	rec := httptest.NewRecorder()
	genReq := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-2/auto-pilot", nil)
	h.AutoPilot(rec, genReq, "job-pack-2")
	if rec.Code != http.StatusOK {
		t.Fatalf("auto-pilot setup failed: %d body=%s", rec.Code, rec.Body.String())
	}

	approveRec := httptest.NewRecorder()
	approveReq := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-2/application-pack/approve", nil)
	h.ApplicationPackApprove(approveRec, approveReq, "job-pack-2")
	if approveRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from a failed readiness gate, got %d body=%s", approveRec.Code, approveRec.Body.String())
	}
	env := decodeEnvelope(t, approveRec)
	if env.OK {
		t.Fatalf("expected ok=false, got %+v", env)
	}
}

func TestApplicationPackReviewThenApproveSucceeds(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()

	job := testJob("job-pack-3", models.JobStatusScored)
	job.PrimaryTargetID = "t1"
	if err := mgr.Jobs.UpsertJob(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := mgr.Targets.Upsert(ctx, models.Target{ID: "t1", Name: "Staff Eng"}); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	profile := models.ResumeProfile{ID: "p1", Name: "Primary", Profile: models.ProfileJSON{Basics: models.ProfileBasics{Name: "Ada", Email: "ada@example.com"}}}
	if err := mgr.Profiles.Upsert(ctx, profile, true); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	genRec := httptest.NewRecorder()
	genReq := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-3/auto-pilot", nil)
	h.AutoPilot(genRec, genReq, "job-pack-3")
	if genRec.Code != http.StatusOK {
		t.Fatalf("auto-pilot setup failed: %d body=%s", genRec.Code, genRec.Body.String())
	}

	edited := models.PackContent{
		Summary:       "Staff engineer with a decade of distributed systems and platform reliability experience across fintech and logistics.",
		Bullets:       []string{"Led a cross-team platform migration that cut latency by 40 percent", "Owned the on-call rotation for a tier-1 payments service"},
		CoverLetter:   "I am excited to apply for this role given my background in distributed systems.",
		FocusKeywords: []string{"Go", "Kubernetes"},
		ATSTargetMode: "all",
	}
	reviewRec := doRequest(func(w http.ResponseWriter, r *http.Request) { h.ApplicationPackReview(w, r, "job-pack-3") },
		http.MethodPost, "/jobs/job-pack-3/application-pack/review", edited)
	if reviewRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", reviewRec.Code, reviewRec.Body.String())
	}

	approveRec := httptest.NewRecorder()
	approveReq := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-3/application-pack/approve", nil)
	h.ApplicationPackApprove(approveRec, approveReq, "job-pack-3")
	if approveRec.Code != http.StatusOK {
		t.Fatalf("expected approve to succeed, got %d body=%s", approveRec.Code, approveRec.Body.String())
	}

	draft, ok, err := mgr.Drafts.GetDraft(ctx, "job-pack-3", "p1")
	if err != nil || !ok {
		t.Fatalf("GetDraft: ok=%v err=%v", ok, err)
	}
	if draft.Status != models.DraftStatusReadyToApply {
		t.Fatalf("expected READY_TO_APPLY, got %s", draft.Status)
	}

	gotJob, ok, err := mgr.Jobs.GetJob(ctx, "job-pack-3")
	if err != nil || !ok {
		t.Fatalf("GetJob: ok=%v err=%v", ok, err)
	}
	if gotJob.Status != models.JobStatusReadyToApply {
		t.Fatalf("expected job status READY_TO_APPLY, got %s", gotJob.Status)
	}
}

func TestApplicationPackRevertRestoresPriorVersion(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()

	job := testJob("job-pack-4", models.JobStatusScored)
	job.PrimaryTargetID = "t1"
	if err := mgr.Jobs.UpsertJob(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := mgr.Targets.Upsert(ctx, models.Target{ID: "t1", Name: "Staff Eng"}); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	profile := models.ResumeProfile{ID: "p1", Name: "Primary", Profile: models.ProfileJSON{Basics: models.ProfileBasics{Name: "Ada"}}}
	if err := mgr.Profiles.Upsert(ctx, profile, true); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	genRec := httptest.NewRecorder()
	genReq := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-4/auto-pilot", nil)
	h.AutoPilot(genRec, genReq, "job-pack-4")
	if genRec.Code != http.StatusOK {
		t.Fatalf("auto-pilot setup failed: %d", genRec.Code)
	}

	edited := models.PackContent{Summary: "A deliberately different edited summary for round two of tailoring this pack.", ATSTargetMode: "all"}
	reviewRec := doRequest(func(w http.ResponseWriter, r *http.Request) { h.ApplicationPackReview(w, r, "job-pack-4") },
		http.MethodPost, "/jobs/job-pack-4/application-pack/review", edited)
	if reviewRec.Code != http.StatusOK {
		t.Fatalf("review failed: %d body=%s", reviewRec.Code, reviewRec.Body.String())
	}

	revertRec := doRequest(func(w http.ResponseWriter, r *http.Request) { h.ApplicationPackRevert(w, r, "job-pack-4") },
		http.MethodPost, "/jobs/job-pack-4/application-pack/revert", map[string]int{"version_no": 1})
	if revertRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", revertRec.Code, revertRec.Body.String())
	}

	draft, ok, err := mgr.Drafts.GetDraft(ctx, "job-pack-4", "p1")
	if err != nil || !ok {
		t.Fatalf("GetDraft: ok=%v err=%v", ok, err)
	}
	if draft.Status != models.DraftStatusContentReviewRequired {
		t.Fatalf("expected CONTENT_REVIEW_REQUIRED after revert, got %s", draft.Status)
	}
	if draft.Pack.Summary == "A deliberately different edited summary for round two of tailoring this pack." {
		t.Fatalf("expected the edited summary to have been reverted away")
	}
}

func TestApplicationPackApproveMissingDraftReturns404(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()
	job := testJob("job-pack-5", models.JobStatusScored)
	if err := mgr.Jobs.UpsertJob(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/job-pack-5/application-pack/approve", nil)
	h.ApplicationPackApprove(rec, req, "job-pack-5")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}
