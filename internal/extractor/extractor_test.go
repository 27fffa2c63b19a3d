package extractor

import (
	"testing"

	"github.com/jobops/triage/internal/llm/llmtest"
	"github.com/jobops/triage/internal/models"
)

func TestExtractJDHappyPath(t *testing.T) {
	fake := &llmtest.FakeProvider{Responses: []string{
		`{"company":"Acme Corp","role_title":"Senior Backend Engineer","location":"Bangalore","work_mode":"Hybrid","seniority":"Senior","experience_years_min":5,"experience_years_max":8,"must_keywords":["Go","Kubernetes"],"nice_keywords":["AWS"],"reject_keywords":[],"skills":["Go","SQL"]}`,
	}}
	got, err := ExtractJD(t.Context(), fake, "some jd text", "https://www.naukri.com/job-listings-senior-backend-engineer-acme-123", models.SourceNaukri, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Company != "Acme Corp" {
		t.Errorf("company = %q, want Acme Corp", got.Company)
	}
	if got.RoleTitle != "Senior Backend Engineer" {
		t.Errorf("role_title = %q", got.RoleTitle)
	}
	if got.ExperienceYearsMin == nil || *got.ExperienceYearsMin != 5 {
		t.Errorf("experience_years_min = %v, want 5", got.ExperienceYearsMin)
	}
	if len(got.MustKeywords) != 2 {
		t.Errorf("must_keywords = %v", got.MustKeywords)
	}
}

func TestExtractJDHandlesPrefixedProse(t *testing.T) {
	fake := &llmtest.FakeProvider{Responses: []string{
		"Here is the extraction:\n```json\n{\"company\":\"Acme\",\"role_title\":\"Engineer\"}\n```\nDone.",
	}}
	got, err := ExtractJD(t.Context(), fake, "jd", "https://example.com/jobs/1", models.SourceOther, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Company != "Acme" {
		t.Errorf("company = %q, want Acme", got.Company)
	}
}

func TestExtractJDNoJSONReturnsError(t *testing.T) {
	fake := &llmtest.FakeProvider{Responses: []string{"sorry, I cannot help with that"}}
	_, err := ExtractJD(t.Context(), fake, "jd", "https://example.com/jobs/1", models.SourceOther, 500)
	if err == nil {
		t.Fatalf("expected error when no JSON object present")
	}
}

func TestExtractJDFallsBackToURLSlugForNoisyRole(t *testing.T) {
	fake := &llmtest.FakeProvider{Responses: []string{
		`{"role_title":"wwwsomehostnamecom","company":"unknown"}`,
	}}
	got, err := ExtractJD(t.Context(), fake, "jd", "https://www.naukri.com/job-listings-data-platform-engineer-555", models.SourceNaukri, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RoleTitle != "Data Platform Engineer" {
		t.Errorf("role_title = %q, want Data Platform Engineer", got.RoleTitle)
	}
	if got.Company != "" {
		t.Errorf("company = %q, want empty after rejecting boilerplate 'unknown'", got.Company)
	}
}

func TestExtractJDCompanyFromJDTextRegex(t *testing.T) {
	fake := &llmtest.FakeProvider{Responses: []string{`{"role_title":"Engineer"}`}}
	jd := "We are a fast growing startup. About Initech: we build great products for everyone."
	got, err := ExtractJD(t.Context(), fake, jd, "https://example.com/jobs/1", models.SourceOther, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Company != "Initech" {
		t.Errorf("company = %q, want Initech", got.Company)
	}
}

func TestIsLikelyCompanyRejectsBoilerplate(t *testing.T) {
	for _, bad := range []string{"", "x", "Confidential", "N/A", "This Is A Very Long Company Name With Far Too Many Words"} {
		if isLikelyCompany(bad) {
			t.Errorf("isLikelyCompany(%q) = true, want false", bad)
		}
	}
	if !isLikelyCompany("Acme Corp") {
		t.Errorf("isLikelyCompany(Acme Corp) = false, want true")
	}
}
