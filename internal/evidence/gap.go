package evidence

import (
	"fmt"
	"strings"

	"github.com/jobops/triage/internal/models"
)

// ClassifyGap classifies one frequently-missed must-requirement against the
// concatenated profile corpus (summary + bullets + skills): a direct
// normalized token match is "matched", a theme synonym present in the corpus
// is "vocabulary_gap" with a generated rewrite suggestion, anything else is
// "true_gap".
func ClassifyGap(requirementText string, missedCount int, profileCorpus string, synonyms SynonymMap) models.GapReportRow {
	row := models.GapReportRow{RequirementText: requirementText, MissedCount: missedCount}

	normCorpus := strings.Join(strings.Fields(strings.ToLower(profileCorpus)), " ")
	normReq := strings.Join(strings.Fields(strings.ToLower(requirementText)), " ")
	if normReq != "" && strings.Contains(normCorpus, normReq) {
		row.Kind = models.GapMatched
		return row
	}

	if hit := synonyms.Find(requirementText, profileCorpus); hit != "" {
		row.Kind = models.GapVocabularyGap
		row.SynonymHit = hit
		row.RewriteSuggestion = rewriteSuggestion(requirementText, hit)
		return row
	}

	row.Kind = models.GapTrueGap
	return row
}

func rewriteSuggestion(requirementText, synonymHit string) string {
	return fmt.Sprintf("Consider rephrasing a bullet that uses %q to explicitly mention %q.", synonymHit, requirementText)
}

// ProfileCorpus concatenates a resume profile's summary, bullets, and skills
// into one lowercase-searchable string for gap classification.
func ProfileCorpus(profile models.ProfileJSON) string {
	var b strings.Builder
	b.WriteString(profile.Summary)
	b.WriteString(" ")
	for _, exp := range profile.Experience {
		for _, bullet := range exp.Bullets {
			b.WriteString(bullet)
			b.WriteString(" ")
		}
	}
	b.WriteString(strings.Join(profile.Skills, " "))
	return b.String()
}
