package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/llm/llmtest"
	"github.com/jobops/triage/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	jobs     map[string]*models.Job
	evidence []models.JobEvidence
	targets  []models.Target
	profile  models.ProfileJSON
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*models.Job{}}
}

func (s *fakeStore) GetJob(_ context.Context, jobKey string) (*models.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobKey]
	return job, ok, nil
}

func (s *fakeStore) UpsertJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobKey] = job
	return nil
}

func (s *fakeStore) UpsertEvidence(_ context.Context, rows []models.JobEvidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, rows...)
	return nil
}

func (s *fakeStore) ListTargets(_ context.Context) ([]models.Target, error) {
	return s.targets, nil
}

func (s *fakeStore) PrimaryResumeProfile(_ context.Context) (models.ProfileJSON, error) {
	return s.profile, nil
}

type fakeDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *fakeDedup) SeenMessage(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[id], nil
}

func (d *fakeDedup) MarkSeen(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[id] = true
	return nil
}

func TestRunInsertsNewJobAndRecovers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h1>Senior Backend Engineer</h1><p>Responsibilities: as a Backend Engineer you will own services end to end, " +
			"design and operate APIs in Go, run workloads on Kubernetes, and model data in SQL for a platform used by millions of people. " +
			"Qualifications: 5+ years of Go and Kubernetes and SQL experience required, along with strong backend fundamentals. Nice-to-have: GraphQL.</p></body></html>"))
	}))
	defer srv.Close()

	store := newFakeStore()
	store.targets = []models.Target{{ID: "t1", PrimaryRole: "Backend Engineer", MustKeywords: []string{"Go", "Kubernetes", "SQL", "backend"}}}

	fake := &llmtest.FakeProvider{Responses: []string{
		`{}`,
		`{"primary_target_id":"t1","score_must":90,"score_nice":80,"final_score":85,"reject_triggered":false}`,
	}}

	deps := Deps{
		Store:       store,
		Provider:    fake,
		HTTPClient:  srv.Client(),
		Logger:      common.GetLogger(),
		Concurrency: 3,
	}

	result := Run(context.Background(), deps, Request{RawURLs: []string{srv.URL + "/jobs/123"}, Channel: "manual"})
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	item := result.Items[0]
	if item.Err != nil {
		t.Fatalf("unexpected error: %v", item.Err)
	}
	if item.Bucket != "recovered" {
		t.Fatalf("bucket = %q, want recovered", item.Bucket)
	}
	job, ok, _ := store.GetJob(context.Background(), item.JobKey)
	if !ok {
		t.Fatalf("expected job to be upserted")
	}
	if job.Status != models.JobStatusShortlisted {
		t.Fatalf("status = %q, want SHORTLISTED", job.Status)
	}
}

func TestRunIgnoresInvalidURL(t *testing.T) {
	store := newFakeStore()
	deps := Deps{Store: store, Logger: common.GetLogger(), Concurrency: 2}
	result := Run(context.Background(), deps, Request{RawURLs: []string{""}, Channel: "manual"})
	if result.Summary["ignored"] != 1 {
		t.Fatalf("summary = %v, want 1 ignored", result.Summary)
	}
}

func TestRunAIUnavailableBucketsNeedsAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Responsibilities: own services end to end. Qualifications: 5 years required. " +
			"This posting has plenty of filler text to clear the minimum JD length threshold for scoring purposes.</p></body></html>"))
	}))
	defer srv.Close()

	store := newFakeStore()
	deps := Deps{Store: store, Provider: nil, HTTPClient: srv.Client(), Logger: common.GetLogger(), Concurrency: 1}
	result := Run(context.Background(), deps, Request{RawURLs: []string{srv.URL + "/jobs/456"}, Channel: "manual"})
	if result.Summary["needs_ai"] != 1 {
		t.Fatalf("summary = %v, want 1 needs_ai", result.Summary)
	}
}

func TestRunDedupesByMessageID(t *testing.T) {
	store := newFakeStore()
	dedup := &fakeDedup{}
	deps := Deps{Store: store, Dedup: dedup, Logger: common.GetLogger(), Concurrency: 1}

	first := Run(context.Background(), deps, Request{RawURLs: []string{"https://www.linkedin.com/jobs/view/111"}, MessageID: "msg-1"})
	if len(first.Items) != 1 {
		t.Fatalf("expected first call to process the URL")
	}

	second := Run(context.Background(), deps, Request{RawURLs: []string{"https://www.linkedin.com/jobs/view/222"}, MessageID: "msg-1"})
	if len(second.Items) != 0 {
		t.Fatalf("expected second call with the same message_id to be skipped, got %d items", len(second.Items))
	}
}
