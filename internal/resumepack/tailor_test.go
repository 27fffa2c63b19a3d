package resumepack

import (
	"context"
	"strings"
	"testing"

	"github.com/jobops/triage/internal/llm/llmtest"
	"github.com/jobops/triage/internal/models"
)

func TestTailorEnforcesSummaryLengthBounds(t *testing.T) {
	pack := Tailor(context.Background(), testProfile(), models.Target{}, testJob(), []string{"golang"}, "all", nil)

	if len(pack.Summary) < 180 || len(pack.Summary) > 250 {
		t.Fatalf("Summary length = %d, want in [180,250]", len(pack.Summary))
	}
}

func TestTailorEnforcesBulletCountAndPrefix(t *testing.T) {
	pack := Tailor(context.Background(), testProfile(), models.Target{}, testJob(), []string{"golang"}, "all", nil)

	if len(pack.Bullets) < 3 || len(pack.Bullets) > 6 {
		t.Fatalf("len(Bullets) = %d, want in [3,6]", len(pack.Bullets))
	}
	for _, b := range pack.Bullets {
		if !strings.HasPrefix(b, "Delivered measurable impact") {
			t.Fatalf("bullet %q missing fixed impact prefix", b)
		}
	}
}

func TestTailorCoverLetterStripsSuperlatives(t *testing.T) {
	pack := Tailor(context.Background(), testProfile(), models.Target{}, testJob(), []string{"golang"}, "all", nil)

	lower := strings.ToLower(pack.CoverLetter)
	for _, phrase := range strippedPhrases {
		if strings.Contains(lower, phrase) {
			t.Fatalf("cover letter retains banned phrase %q: %q", phrase, pack.CoverLetter)
		}
	}
}

func TestTailorPolishFallsBackOnProviderError(t *testing.T) {
	provider := &llmtest.FakeProvider{Err: errFake}

	pack := Tailor(context.Background(), testProfile(), models.Target{}, testJob(), []string{"golang"}, "all", provider)

	if pack.Summary == "" {
		t.Fatalf("expected non-empty summary even when polish fails")
	}
}

func TestTailorPolishAppliesWhenResponseValid(t *testing.T) {
	provider := &llmtest.FakeProvider{Responses: []string{
		`{"summary":"Polished summary about golang.","bullets":["Delivered measurable impact: polished bullet about golang."],"cover_letter":"Dear team, golang aligns directly with your need for golang."}`,
	}}

	pack := Tailor(context.Background(), testProfile(), models.Target{}, testJob(), []string{"golang"}, "all", provider)

	if !strings.Contains(strings.ToLower(pack.Summary), "polished summary") {
		t.Fatalf("expected polished summary content to carry through enforcement, got %q", pack.Summary)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errFake = fakeErr("fake provider error")
