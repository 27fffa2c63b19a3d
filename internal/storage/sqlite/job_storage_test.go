package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		Environment:   "test",
		BusyTimeoutMS: 5000,
		CacheSizeMB:   8,
	}
	db, err := Open(common.GetLogger(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testJob(jobKey string) *models.Job {
	now := common.NowMillis()
	return &models.Job{
		JobKey:       jobKey,
		JobURL:       "https://boards.example.com/jobs/" + jobKey,
		SourceDomain: models.SourceLinkedIn,
		Company:      "Acme Corp",
		RoleTitle:    "Staff Engineer",
		MustKeywords: []string{"go", "distributed systems"},
		NiceKeywords: []string{"kubernetes"},
		Status:       models.JobStatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUpsertJobAndGetJobRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	job := testJob("job-1")
	if err := store.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}

	got, found, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !found {
		t.Fatalf("expected job-1 to be found")
	}
	if got.Company != job.Company || got.RoleTitle != job.RoleTitle {
		t.Fatalf("round-tripped job mismatch: %+v", got)
	}
	if len(got.MustKeywords) != 2 || got.MustKeywords[0] != "go" {
		t.Fatalf("must_keywords did not round-trip: %+v", got.MustKeywords)
	}
}

func TestGetJobMissingReturnsNotFoundFalse(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())

	_, found, err := store.GetJob(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestUpsertJobOverwritesNonTerminalFields(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	job := testJob("job-2")
	if err := store.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}

	job.RoleTitle = "Principal Engineer"
	job.Status = models.JobStatusScored
	score := 82
	job.FinalScore = &score
	if err := store.UpsertJob(ctx, job); err != nil {
		t.Fatalf("second UpsertJob: %v", err)
	}

	got, _, err := store.GetJob(ctx, "job-2")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.RoleTitle != "Principal Engineer" {
		t.Fatalf("expected updated role title, got %q", got.RoleTitle)
	}
	if got.FinalScore == nil || *got.FinalScore != 82 {
		t.Fatalf("expected final_score 82, got %+v", got.FinalScore)
	}
}

func TestUpsertEvidenceIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	job := testJob("job-3")
	if err := store.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}

	rows := []models.JobEvidence{
		{
			JobKey:          "job-3",
			RequirementText: "go",
			RequirementType: models.RequirementMust,
			EvidenceSource:  models.EvidenceSourceBullets,
			Confidence:      models.ConfidenceBullets,
			Matched:         true,
		},
	}
	if err := store.UpsertEvidence(ctx, rows); err != nil {
		t.Fatalf("UpsertEvidence: %v", err)
	}

	rows[0].Confidence = models.ConfidenceSummary
	rows[0].EvidenceSource = models.EvidenceSourceSummary
	if err := store.UpsertEvidence(ctx, rows); err != nil {
		t.Fatalf("second UpsertEvidence: %v", err)
	}

	var count int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM job_evidence WHERE job_key = ?`, "job-3").Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one evidence row after re-upsert, got %d", count)
	}

	var confidence int
	if err := db.db.QueryRow(`SELECT confidence_score FROM job_evidence WHERE job_key = ?`, "job-3").Scan(&confidence); err != nil {
		t.Fatalf("confidence query: %v", err)
	}
	if confidence != models.ConfidenceSummary {
		t.Fatalf("expected updated confidence %d, got %d", models.ConfidenceSummary, confidence)
	}
}

func TestUpsertEvidenceNoopOnEmpty(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())

	if err := store.UpsertEvidence(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error on empty rows, got %v", err)
	}
}

func TestListTargetsReturnsInsertedRows(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	now := common.NowMillis()
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO targets (id, name, primary_role, must_keywords_json, nice_keywords_json, reject_keywords_json, rubric_profile, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"target-1", "Staff Backend", "Staff Engineer", `["go","postgres"]`, `[]`, `[]`, "auto", now, now)
	if err != nil {
		t.Fatalf("seed target: %v", err)
	}

	targets, err := store.ListTargets(ctx)
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if targets[0].Name != "Staff Backend" || len(targets[0].MustKeywords) != 2 {
		t.Fatalf("unexpected target: %+v", targets[0])
	}
}

func TestPrimaryResumeProfileNotFound(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())

	_, err := store.PrimaryResumeProfile(context.Background())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestPrimaryResumeProfileReturnsFlaggedRow(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	now := common.NowMillis()
	profileJSON := `{"basics":{"name":"Jamie Doe","email":"jamie@example.com"},"summary":"Staff engineer","experience":[],"skills":["go"]}`
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO resume_profiles (id, name, is_primary, profile_json, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)`,
		"profile-1", "Primary", profileJSON, now, now)
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	profile, err := store.PrimaryResumeProfile(ctx)
	if err != nil {
		t.Fatalf("PrimaryResumeProfile: %v", err)
	}
	if profile.Basics.Name != "Jamie Doe" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestUpsertEvidenceReturnsSchemaDisabledWhenTableDropped(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	if _, err := db.db.ExecContext(ctx, `DROP TABLE job_evidence`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	err := store.UpsertEvidence(ctx, []models.JobEvidence{{JobKey: "job-x", RequirementText: "go", RequirementType: models.RequirementMust}})
	if !apperr.Is(err, apperr.KindSchemaDisabled) {
		t.Fatalf("expected KindSchemaDisabled, got %v", err)
	}
}

func TestListByStatusesFiltersAndOrders(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	new1 := testJob("job-new-1")
	new1.Status = models.JobStatusNew
	new1.UpdatedAt = 100
	new2 := testJob("job-new-2")
	new2.Status = models.JobStatusScored
	new2.UpdatedAt = 200
	rejected := testJob("job-rejected")
	rejected.Status = models.JobStatusRejected
	rejected.UpdatedAt = 50

	for _, j := range []*models.Job{new1, new2, rejected} {
		if err := store.UpsertJob(ctx, j); err != nil {
			t.Fatalf("UpsertJob: %v", err)
		}
	}

	got, err := store.ListByStatuses(ctx, []models.JobStatus{models.JobStatusNew, models.JobStatusScored}, 10)
	if err != nil {
		t.Fatalf("ListByStatuses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(got))
	}
	if got[0].JobKey != "job-new-1" || got[1].JobKey != "job-new-2" {
		t.Fatalf("expected oldest-first order, got %v, %v", got[0].JobKey, got[1].JobKey)
	}
}

func TestListMissingExtractedFieldsFindsUsableJDWithoutKeywords(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStore(db, common.GetLogger())
	ctx := context.Background()

	withoutKeywords := testJob("job-missing")
	withoutKeywords.MustKeywords = nil
	withoutKeywords.FetchStatus = models.FetchStatusOK
	withoutKeywords.JDTextClean = string(make([]byte, 200))
	if err := store.UpsertJob(ctx, withoutKeywords); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}

	withKeywords := testJob("job-complete")
	withKeywords.FetchStatus = models.FetchStatusOK
	withKeywords.JDTextClean = string(make([]byte, 200))
	if err := store.UpsertJob(ctx, withKeywords); err != nil {
		t.Fatalf("UpsertJob: %v", err)
	}

	got, err := store.ListMissingExtractedFields(ctx, 10)
	if err != nil {
		t.Fatalf("ListMissingExtractedFields: %v", err)
	}
	if len(got) != 1 || got[0].JobKey != "job-missing" {
		t.Fatalf("expected only job-missing, got %+v", got)
	}
}
