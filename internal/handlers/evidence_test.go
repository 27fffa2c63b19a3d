package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobops/triage/internal/models"
)

func TestGapReportClassifiesMatchedVocabularyAndTrueGaps(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()

	jobA := testJob("job-gap-a", models.JobStatusScored)
	jobB := testJob("job-gap-b", models.JobStatusScored)
	if err := mgr.Jobs.UpsertJob(ctx, jobA); err != nil {
		t.Fatalf("seed jobA: %v", err)
	}
	if err := mgr.Jobs.UpsertJob(ctx, jobB); err != nil {
		t.Fatalf("seed jobB: %v", err)
	}

	rows := []models.JobEvidence{
		{JobKey: "job-gap-a", RequirementText: "kubernetes", RequirementType: models.RequirementMust, Matched: false, EvidenceSource: models.EvidenceSourceNone},
		{JobKey: "job-gap-b", RequirementText: "kubernetes", RequirementType: models.RequirementMust, Matched: false, EvidenceSource: models.EvidenceSourceNone},
	}
	if err := mgr.Jobs.UpsertEvidence(ctx, rows); err != nil {
		t.Fatalf("seed evidence: %v", err)
	}

	profile := models.ResumeProfile{
		ID: "p1", Name: "Primary", IsPrimary: true,
		Profile: models.ProfileJSON{Summary: "Experienced with container orchestration and k8s at scale."},
	}
	if err := mgr.Profiles.Upsert(ctx, profile, true); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/evidence/gap-report?min_missed=2", nil)
	h.GapReport(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	if !env.OK {
		t.Fatalf("expected ok=true, got %+v", env)
	}
}

func TestRebuildArchivedClampsLimitAndRescores(t *testing.T) {
	h, mgr := newTestHandlers(t, nil)
	ctx := context.Background()

	job := testJob("job-rebuild-1", models.JobStatusArchived)
	if err := mgr.Jobs.UpsertJob(ctx, job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	rec := doRequest(h.RebuildArchived, http.MethodPost, "/jobs/evidence/rebuild-archived", map[string]interface{}{"limit": 999, "mode": "all_archived"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.OK {
		t.Fatalf("expected ok=true, got %+v", env)
	}
}
