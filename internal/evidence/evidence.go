// Package evidence matches a job's extracted requirements against a
// candidate's resume profile and the job description itself, producing one
// evidence row per requirement with a confidence score and a snippet, plus a
// read-only gap classifier for reporting across archived jobs.
package evidence

import (
	"regexp"
	"strings"

	"github.com/jobops/triage/internal/extractor"
	"github.com/jobops/triage/internal/models"
)

var wordLikeRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_ ]*[A-Za-z0-9_]$`)

// BuildRows produces one evidence row per deduped requirement across the
// must/nice/reject/constraint groups, searching summary, then any bullet,
// then the JD text, in that order.
func BuildRows(jobKey string, ex extractor.Extracted, jdText string, profile models.ProfileJSON) []models.JobEvidence {
	type requirement struct {
		text string
		kind models.RequirementType
	}

	groups := []requirement{}
	for _, t := range ex.MustKeywords {
		groups = append(groups, requirement{t, models.RequirementMust})
	}
	for _, t := range ex.NiceKeywords {
		groups = append(groups, requirement{t, models.RequirementNice})
	}
	for _, t := range ex.RejectKeywords {
		groups = append(groups, requirement{t, models.RequirementReject})
	}
	// Extracted carries no separate constraint list, so the skills list is
	// used as the constraint group.
	for _, t := range ex.Skills {
		groups = append(groups, requirement{t, models.RequirementConstraint})
	}

	seen := map[string]bool{}
	bulletsCorpus := strings.Join(flattenBullets(profile), "\n")

	var rows []models.JobEvidence
	for _, req := range groups {
		text := strings.TrimSpace(req.text)
		if text == "" {
			continue
		}
		key := string(req.kind) + "|" + strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true

		rows = append(rows, matchRequirement(jobKey, text, req.kind, profile.Summary, bulletsCorpus, jdText))
	}
	return rows
}

func flattenBullets(profile models.ProfileJSON) []string {
	var out []string
	for _, exp := range profile.Experience {
		out = append(out, exp.Bullets...)
	}
	return out
}

// matchRequirement searches summary, then bullets, then JD text, returning
// the first hit's evidence row, or an unmatched row when none hit.
func matchRequirement(jobKey, requirementText string, kind models.RequirementType, summary, bulletsCorpus, jdText string) models.JobEvidence {
	sources := []struct {
		text   string
		source models.EvidenceSource
		conf   int
	}{
		{summary, models.EvidenceSourceSummary, models.ConfidenceSummary},
		{bulletsCorpus, models.EvidenceSourceBullets, models.ConfidenceBullets},
		{jdText, models.EvidenceSourceJD, models.ConfidenceJD},
	}

	for _, src := range sources {
		if src.text == "" {
			continue
		}
		if snippet, ok := findSnippet(requirementText, src.text); ok {
			return models.JobEvidence{
				JobKey:          jobKey,
				RequirementText: requirementText,
				RequirementType: kind,
				EvidenceText:    snippet,
				EvidenceSource:  src.source,
				Confidence:      src.conf,
				Matched:         true,
			}
		}
	}

	return models.JobEvidence{
		JobKey:          jobKey,
		RequirementText: requirementText,
		RequirementType: kind,
		EvidenceSource:  models.EvidenceSourceNone,
		Confidence:      models.ConfidenceNone,
		Matched:         false,
		Notes:           "No deterministic match against summary, bullets, or JD text.",
	}
}

// findSnippet tries a word-boundary (or literal, for non-word requirement
// text) case-insensitive regex first, then falls back to a whitespace-
// normalized lowercase substring search for compound tokens the regex path
// would miss across a line break or double space.
func findSnippet(requirementText, corpus string) (string, bool) {
	pattern := regexp.QuoteMeta(requirementText)
	if wordLikeRe.MatchString(requirementText) {
		pattern = `\b` + pattern + `\b`
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err == nil {
		if loc := re.FindStringIndex(corpus); loc != nil {
			return window(corpus, loc[0], loc[1]), true
		}
	}

	normCorpus := strings.Join(strings.Fields(strings.ToLower(corpus)), " ")
	normReq := strings.Join(strings.Fields(strings.ToLower(requirementText)), " ")
	if idx := strings.Index(normCorpus, normReq); idx != -1 {
		return window(normCorpus, idx, idx+len(normReq)), true
	}

	return "", false
}

// window builds a +-110-char snippet around [start,end), capped at 220
// chars, with leading/trailing ellipses when the window is truncated.
func window(corpus string, start, end int) string {
	const radius = 110
	const maxLen = 220

	lo := start - radius
	prefixEllipsis := lo > 0
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	suffixEllipsis := hi < len(corpus)
	if hi > len(corpus) {
		hi = len(corpus)
	}

	snippet := strings.TrimSpace(corpus[lo:hi])
	if prefixEllipsis {
		snippet = "…" + snippet
	}
	if suffixEllipsis {
		snippet = snippet + "…"
	}
	if len(snippet) > maxLen {
		snippet = snippet[:maxLen-1] + "…"
	}
	return snippet
}
