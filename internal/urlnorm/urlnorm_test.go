package urlnorm

import (
	"testing"

	"github.com/jobops/triage/internal/models"
)

func TestNormalizeCanonicalLinkedIn(t *testing.T) {
	in := "https://www.linkedin.com/jobs/search?currentJobId=3847291038&trk=public_jobs_jserp"
	got, err := Normalize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SourceDomain != models.SourceLinkedIn {
		t.Errorf("source_domain = %q, want linkedin", got.SourceDomain)
	}
	if got.JobID != "3847291038" {
		t.Errorf("job_id = %q, want 3847291038", got.JobID)
	}
	want := "https://www.linkedin.com/jobs/view/3847291038/"
	if got.JobURL != want {
		t.Errorf("job_url = %q, want %q", got.JobURL, want)
	}
	if got.Ignored {
		t.Errorf("expected Ignored=false")
	}
}

func TestNormalizeLinkedInJobsViewPath(t *testing.T) {
	got, err := Normalize("https://www.linkedin.com/jobs/view/1234567/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.JobID != "1234567" {
		t.Errorf("job_id = %q, want 1234567", got.JobID)
	}
}

func TestNormalizeLinkedInWithoutIDIsIgnored(t *testing.T) {
	got, err := Normalize("https://www.linkedin.com/jobs/search?keywords=engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Ignored {
		t.Errorf("expected Ignored=true for LinkedIn URL with no recoverable job id")
	}
}

func TestNormalizeIIMJobs(t *testing.T) {
	got, err := Normalize("https://www.iimjobs.com/j/senior-backend-engineer-1029384.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SourceDomain != models.SourceIIMJobs {
		t.Errorf("source_domain = %q, want iimjobs", got.SourceDomain)
	}
	if got.JobID != "1029384" {
		t.Errorf("job_id = %q, want 1029384", got.JobID)
	}
}

func TestNormalizeNaukriRejectsInbox(t *testing.T) {
	got, err := Normalize("https://www.naukri.com/mnjuser/inbox?id=5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Ignored {
		t.Errorf("expected naukri inbox URL to be ignored")
	}
}

func TestNormalizeNaukriJobListing(t *testing.T) {
	got, err := Normalize("https://www.naukri.com/job-listings-backend-engineer-acme-bangalore-5-8-years-200112509")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SourceDomain != models.SourceNaukri {
		t.Errorf("source_domain = %q, want naukri", got.SourceDomain)
	}
	if got.JobID != "200112509" {
		t.Errorf("job_id = %q, want 200112509", got.JobID)
	}
}

func TestNormalizeOtherStripsQueryAndTrailingSlash(t *testing.T) {
	got, err := Normalize("https://boards.greenhouse.io/acme/jobs/12345/?utm_source=foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://boards.greenhouse.io/acme/jobs/12345"
	if got.JobURL != want {
		t.Errorf("job_url = %q, want %q", got.JobURL, want)
	}
}

func TestNormalizeUnwrapsTrackingRedirect(t *testing.T) {
	in := "https://email.tracking.example.com/click?redirect_url=https%3A%2F%2Fwww.linkedin.com%2Fjobs%2Fview%2F999888%2F"
	got, err := Normalize(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SourceDomain != models.SourceLinkedIn || got.JobID != "999888" {
		t.Fatalf("got %+v, expected unwrapped linkedin job 999888", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.linkedin.com/jobs/search?currentJobId=55512&trk=x",
		"https://www.iimjobs.com/j/product-manager-223344.html",
		"https://www.naukri.com/job-listings-data-engineer-foo-bar-778899",
		"https://boards.greenhouse.io/acme/jobs/555/?src=campaign",
	}
	for _, in := range inputs {
		first, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", in, err)
		}
		if first.Ignored {
			continue
		}
		second, err := Normalize(first.JobURL)
		if err != nil {
			t.Fatalf("Normalize(%q) (second pass) error: %v", first.JobURL, err)
		}
		if second.JobKey != first.JobKey {
			t.Errorf("not idempotent: Normalize(%q)=%q then Normalize(%q)=%q", in, first.JobKey, first.JobURL, second.JobKey)
		}
	}
}

func TestNormalizeEmptyURL(t *testing.T) {
	if _, err := Normalize(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestNormalizeInvalidURL(t *testing.T) {
	if _, err := Normalize("://not-a-url"); err == nil {
		t.Fatalf("expected error for invalid url")
	}
}
