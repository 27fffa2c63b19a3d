package evidence

import (
	"strings"
	"testing"

	"github.com/jobops/triage/internal/extractor"
	"github.com/jobops/triage/internal/models"
)

func testProfile() models.ProfileJSON {
	return models.ProfileJSON{
		Summary: "Backend engineer with 8 years of experience building distributed systems in Go.",
		Experience: []models.ProfileExperience{
			{Company: "Acme", Role: "Staff Engineer", Bullets: []string{
				"Led a team of 8 engineers shipping a payments platform.",
				"Drove adoption of Kubernetes across three product lines.",
			}},
		},
		Skills: []string{"Go", "Kubernetes", "SQL"},
	}
}

func TestBuildRowsMatchesSummaryFirst(t *testing.T) {
	ex := extractor.Extracted{MustKeywords: []string{"distributed systems"}}
	rows := BuildRows("key1", ex, "", testProfile())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if !row.Matched || row.EvidenceSource != models.EvidenceSourceSummary || row.Confidence != models.ConfidenceSummary {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !strings.Contains(row.EvidenceText, "distributed systems") {
		t.Fatalf("snippet missing match: %q", row.EvidenceText)
	}
}

func TestBuildRowsFallsBackToBullets(t *testing.T) {
	ex := extractor.Extracted{MustKeywords: []string{"Kubernetes"}}
	rows := BuildRows("key1", ex, "", testProfile())
	row := rows[0]
	if row.EvidenceSource != models.EvidenceSourceBullets || row.Confidence != models.ConfidenceBullets {
		t.Fatalf("unexpected source: %+v", row)
	}
}

func TestBuildRowsFallsBackToJD(t *testing.T) {
	ex := extractor.Extracted{MustKeywords: []string{"GraphQL"}}
	rows := BuildRows("key1", ex, "Experience with GraphQL APIs required.", testProfile())
	row := rows[0]
	if row.EvidenceSource != models.EvidenceSourceJD || row.Confidence != models.ConfidenceJD {
		t.Fatalf("unexpected source: %+v", row)
	}
}

func TestBuildRowsUnmatched(t *testing.T) {
	ex := extractor.Extracted{MustKeywords: []string{"Rust"}}
	rows := BuildRows("key1", ex, "", testProfile())
	row := rows[0]
	if row.Matched || row.EvidenceSource != models.EvidenceSourceNone || row.Confidence != models.ConfidenceNone {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Notes == "" {
		t.Fatalf("expected a notes message on unmatched row")
	}
}

func TestBuildRowsDedupesByTypeAndText(t *testing.T) {
	ex := extractor.Extracted{MustKeywords: []string{"Go", "go"}}
	rows := BuildRows("key1", ex, "", testProfile())
	if len(rows) != 1 {
		t.Fatalf("expected dedup to 1 row, got %d", len(rows))
	}
}

func TestFindSnippetWhitespaceNormalizedFallback(t *testing.T) {
	corpus := "built a platform for event   driven\nsystems"
	snippet, ok := findSnippet("event driven systems", corpus)
	if !ok {
		t.Fatalf("expected a normalized-fallback match")
	}
	if !strings.Contains(snippet, "event driven systems") {
		t.Fatalf("snippet = %q", snippet)
	}
}

func TestClassifyGapMatched(t *testing.T) {
	row := ClassifyGap("Leadership", 3, "I have strong leadership experience.", SynonymMap{})
	if row.Kind != models.GapMatched {
		t.Fatalf("kind = %q, want matched", row.Kind)
	}
}

func TestClassifyGapVocabularyGap(t *testing.T) {
	synonyms, err := LoadSynonymMap([]byte(DefaultSynonymMapYAML))
	if err != nil {
		t.Fatalf("LoadSynonymMap: %v", err)
	}
	row := ClassifyGap("Leadership", 3, "Led a team of 8 engineers.", synonyms)
	if row.Kind != models.GapVocabularyGap {
		t.Fatalf("kind = %q, want vocabulary_gap", row.Kind)
	}
	if row.SynonymHit != "led" {
		t.Fatalf("synonym_hit = %q, want led", row.SynonymHit)
	}
	if row.RewriteSuggestion == "" {
		t.Fatalf("expected a rewrite suggestion")
	}
}

func TestClassifyGapTrueGap(t *testing.T) {
	synonyms, _ := LoadSynonymMap([]byte(DefaultSynonymMapYAML))
	row := ClassifyGap("Leadership", 3, "Wrote unit tests for the billing service.", synonyms)
	if row.Kind != models.GapTrueGap {
		t.Fatalf("kind = %q, want true_gap", row.Kind)
	}
}
