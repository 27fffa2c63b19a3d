package resumepack

import (
	"context"
	"testing"

	"github.com/jobops/triage/internal/models"
)

func testJob() *models.Job {
	return &models.Job{
		JobKey:       "job-1",
		RoleTitle:    "Backend Engineer",
		Company:      "Acme",
		MustKeywords: []string{"golang", "distributed systems"},
		NiceKeywords: []string{"kubernetes"},
		FetchStatus:  models.FetchStatusOK,
	}
}

func TestGenerateProducesContentReviewRequiredDraft(t *testing.T) {
	draft, err := Generate(context.Background(), nil, GenerateInput{
		Job:     testJob(),
		Profile: testProfile(),
		Target:  models.Target{},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.Status != models.DraftStatusContentReviewRequired {
		t.Fatalf("Status = %v, want CONTENT_REVIEW_REQUIRED", draft.Status)
	}
	if draft.Pack.Summary == "" {
		t.Fatalf("expected non-empty summary")
	}
	if draft.RRExport.Metadata.ContractID != "jobops.rr_export.v1" {
		t.Fatalf("expected RRExport to be populated on generate")
	}
}

func TestGenerateRefusesRegenerateOfReadyToApplyWithoutForce(t *testing.T) {
	existing := &models.ResumeDraft{Status: models.DraftStatusReadyToApply}

	_, err := Generate(context.Background(), existing, GenerateInput{
		Job:     testJob(),
		Profile: testProfile(),
		Target:  models.Target{},
	})
	if err == nil {
		t.Fatalf("expected error regenerating a READY_TO_APPLY draft without force")
	}
}

func TestGenerateAllowsForceRegenerateOfReadyToApply(t *testing.T) {
	existing := &models.ResumeDraft{Status: models.DraftStatusReadyToApply}

	draft, err := Generate(context.Background(), existing, GenerateInput{
		Job:     testJob(),
		Profile: testProfile(),
		Target:  models.Target{},
		Force:   true,
	})
	if err != nil {
		t.Fatalf("Generate with force: %v", err)
	}
	if draft.Status != models.DraftStatusContentReviewRequired {
		t.Fatalf("Status = %v, want CONTENT_REVIEW_REQUIRED after forced regenerate", draft.Status)
	}
}

func TestManualEditAdvancesToReadyForExportWhenGatePasses(t *testing.T) {
	job := testJob()
	draft, err := Generate(context.Background(), nil, GenerateInput{
		Job:     job,
		Profile: testProfile(),
		Target:  models.Target{},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	edited := draft.Pack
	edited.CoverLetter = draft.Pack.CoverLetter

	check := ManualEdit(draft, job, models.Target{}, testProfile(), edited, GateConfig{Mode: "soft"})

	if !check.Passed {
		t.Fatalf("expected manual edit to pass soft gate, got FailedChecks=%v", check.FailedChecks)
	}
	if draft.Status != models.DraftStatusReadyForExport {
		t.Fatalf("Status = %v, want READY_FOR_EXPORT", draft.Status)
	}
}

func TestApproveFailsWhenHardGateNotMet(t *testing.T) {
	job := testJob()
	draft := &models.ResumeDraft{
		Pack: models.PackContent{Summary: "short"},
		ATS:  models.ATSResult{Score: 10},
	}

	_, err := Approve(draft, job, GateConfig{Mode: "soft"}, 0)
	if err == nil {
		t.Fatalf("expected Approve to fail a draft that doesn't meet the hard gate")
	}
	if draft.Status == models.DraftStatusReadyToApply {
		t.Fatalf("draft should not have transitioned to READY_TO_APPLY")
	}
}

func TestApproveTransitionsDraftAndJobWhenGatePasses(t *testing.T) {
	job := testJob()
	draft, err := Generate(context.Background(), nil, GenerateInput{
		Job:     job,
		Profile: testProfile(),
		Target:  models.Target{},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	check, err := Approve(draft, job, GateConfig{Mode: "soft"}, 1)
	if err != nil {
		t.Fatalf("Approve: %v (FailedChecks=%v)", err, check.FailedChecks)
	}
	if draft.Status != models.DraftStatusReadyToApply {
		t.Fatalf("draft.Status = %v, want READY_TO_APPLY", draft.Status)
	}
	if job.Status != models.JobStatusReadyToApply {
		t.Fatalf("job.Status = %v, want READY_TO_APPLY", job.Status)
	}
}

func TestRevertRestoresPriorVersionPayload(t *testing.T) {
	draft := &models.ResumeDraft{Pack: models.PackContent{Summary: "current"}}
	version := models.DraftVersion{
		Pack: models.PackContent{Summary: "previous"},
		ATS:  models.ATSResult{Score: 55},
	}

	reverted := Revert(draft, version)

	if reverted.Pack.Summary != "previous" {
		t.Fatalf("Pack.Summary = %q, want %q", reverted.Pack.Summary, "previous")
	}
	if reverted.ATS.Score != 55 {
		t.Fatalf("ATS.Score = %d, want 55", reverted.ATS.Score)
	}
}

func TestNextVersionNoStartsAtOne(t *testing.T) {
	if got := NextVersionNo(nil); got != 1 {
		t.Fatalf("NextVersionNo(nil) = %d, want 1", got)
	}
}

func TestNextVersionNoIncrementsFromMax(t *testing.T) {
	existing := []models.DraftVersion{{VersionNo: 1}, {VersionNo: 3}, {VersionNo: 2}}
	if got := NextVersionNo(existing); got != 4 {
		t.Fatalf("NextVersionNo = %d, want 4", got)
	}
}
