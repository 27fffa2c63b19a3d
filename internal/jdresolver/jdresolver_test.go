package jdresolver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jobops/triage/internal/models"
)

func longResponsibilities(n int) string {
	sb := strings.Builder{}
	sb.WriteString("Job Description: We are looking for a great engineer. Responsibilities: ")
	for i := 0; i < n; i++ {
		sb.WriteString("Own a critical service end to end and mentor other engineers. ")
	}
	sb.WriteString("Qualifications: 5+ years experience. Nice to have: Go experience. ")
	sb.WriteString("Apply now to join our team.")
	return sb.String()
}

func TestResolveFetchedHighQuality(t *testing.T) {
	body := "<html><body><h1>Senior Engineer</h1><p>" + longResponsibilities(20) + "</p></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	got := Resolve(t.Context(), srv.Client(), models.SourceOther, srv.URL, EmailContext{}, Config{Timeout: 5 * time.Second, UserAgent: "test"})
	if got.FetchStatus != models.FetchStatusOK {
		t.Fatalf("fetch_status = %q, want ok", got.FetchStatus)
	}
	if got.JDSource != models.JDSourceFetched {
		t.Fatalf("jd_source = %q, want fetched", got.JDSource)
	}
	if got.Debug.Confidence == "" {
		t.Fatalf("expected a confidence grade to be set")
	}
	if len(got.JDTextClean) < 260 {
		t.Fatalf("expected cleaned JD >= 260 chars, got %d", len(got.JDTextClean))
	}
}

func TestResolveBlockedFallsBackToEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	email := EmailContext{
		Subject: "Job opening",
		From:    "recruiter@example.com",
		Text:    "Responsibilities: " + strings.Repeat("Build distributed systems at scale. ", 10) + "Apply now.",
	}
	got := Resolve(t.Context(), srv.Client(), models.SourceOther, srv.URL, email, Config{Timeout: 5 * time.Second})
	if got.FetchStatus != models.FetchStatusOK {
		t.Fatalf("fetch_status = %q, want ok (email fallback)", got.FetchStatus)
	}
	if got.JDSource != models.JDSourceEmail {
		t.Fatalf("jd_source = %q, want email", got.JDSource)
	}
	if got.Debug.PriorStatus != string(models.FetchStatusBlocked) {
		t.Fatalf("debug.prior_status = %q, want blocked", got.Debug.PriorStatus)
	}
}

func TestResolveLinkedInSkipsFetch(t *testing.T) {
	email := EmailContext{
		Text: "Job Description: " + strings.Repeat("Lead the platform team and drive architecture. ", 10) + "Apply now.",
	}
	got := Resolve(t.Context(), http.DefaultClient, models.SourceLinkedIn, "https://www.linkedin.com/jobs/view/123/", email, Config{Timeout: 5 * time.Second})
	if got.JDSource != models.JDSourceEmail {
		t.Fatalf("jd_source = %q, want email (linkedin fetch must be skipped)", got.JDSource)
	}
	if got.Debug.PolicyLabel != "strict_linkedin" {
		t.Fatalf("debug.policy_label = %q, want strict_linkedin", got.Debug.PolicyLabel)
	}
}

func TestResolveNoneWhenBothUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	got := Resolve(t.Context(), srv.Client(), models.SourceOther, srv.URL, EmailContext{Text: "too short"}, Config{Timeout: 5 * time.Second})
	if got.JDSource != models.JDSourceNone {
		t.Fatalf("jd_source = %q, want none", got.JDSource)
	}
	if got.JDTextClean != "" {
		t.Fatalf("expected empty jd_text_clean, got %q", got.JDTextClean)
	}
	if got.FetchStatus != models.FetchStatusFailed {
		t.Fatalf("fetch_status = %q, want failed", got.FetchStatus)
	}
}

func TestPolicyForKnownAndUnknownSources(t *testing.T) {
	if p := PolicyFor("linkedin"); p.MinChars != 280 || !p.RequireFetchedHighConf {
		t.Fatalf("unexpected linkedin policy: %+v", p)
	}
	if p := PolicyFor("whatsapp.vonage.local"); !p.AllowLowConfEmail || p.MinChars != 120 {
		t.Fatalf("unexpected whatsapp policy: %+v", p)
	}
	if p := PolicyFor("totally-unknown"); p.MinChars != 220 {
		t.Fatalf("expected unknown source to fall back to other policy, got %+v", p)
	}
}

func TestIsLowQualityTighterThresholdOnLinkedIn(t *testing.T) {
	text := strings.Repeat("cookie privacy ", 2) +strings.Repeat("filler content here to pad length well past two hundred twenty characters so the length gate does not trip first. ", 3)
	if !isLowQuality(text, true) {
		t.Fatalf("expected low quality on LinkedIn shell with only 4 cookie/privacy mentions")
	}
	if isLowQuality(text, false) {
		t.Fatalf("expected non-LinkedIn source with 4 mentions to pass (threshold 6)")
	}
}
