package resumepack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/models"
)

var strippedPhrases = []string{"perfect fit", "best candidate", "guarantee", "no doubt"}

// Tailor composes the draft's content from profile + target, applying an
// optional LLM polish pass, then enforces the deterministic post-conditions
// the spec fixes regardless of what the polish pass returns.
func Tailor(ctx context.Context, profile models.ResumeProfile, target models.Target, job *models.Job, focus []string, atsMode string, polish llm.Provider) models.PackContent {
	summary := buildSummary(profile, focus)
	bullets := buildBullets(profile, focus)
	coverLetter := buildCoverLetter(profile, target, job, focus)

	if polish != nil {
		if polished, ok := tryPolish(ctx, polish, summary, bullets, coverLetter); ok {
			summary, bullets, coverLetter = polished.summary, polished.bullets, polished.coverLetter
		}
	}

	summary = enforceSummary(summary, focus)
	bullets = enforceBullets(bullets, focus)
	coverLetter = enforceCoverLetter(coverLetter, focus)

	return models.PackContent{
		Summary:       summary,
		Bullets:       bullets,
		CoverLetter:   coverLetter,
		FocusKeywords: focus,
		ATSTargetMode: atsMode,
	}
}

func buildSummary(profile models.ResumeProfile, focus []string) string {
	strongest := strongestMatch(profile, focus)
	base := profile.Profile.Summary
	if strongest == "" {
		return base
	}
	return fmt.Sprintf("%s. %s", strongest, base)
}

// strongestMatch returns the first focus keyword that appears in the
// profile's summary or any bullet, standing in for "strongest matched
// must-requirement" until a weighted ranking is worth the complexity.
func strongestMatch(profile models.ResumeProfile, focus []string) string {
	haystack := strings.ToLower(profile.Profile.Summary)
	for _, exp := range profile.Profile.Experience {
		haystack += " " + strings.ToLower(strings.Join(exp.Bullets, " "))
	}
	for _, kw := range focus {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return kw
		}
	}
	if len(focus) > 0 {
		return focus[0]
	}
	return ""
}

func buildBullets(profile models.ResumeProfile, focus []string) []string {
	var out []string
	for _, exp := range profile.Profile.Experience {
		for _, bullet := range exp.Bullets {
			out = append(out, bullet)
			if len(out) >= 6 {
				return out
			}
		}
	}
	if len(out) == 0 && len(focus) > 0 {
		out = append(out, fmt.Sprintf("Applied %s across day-to-day delivery work.", focus[0]))
	}
	return out
}

func buildCoverLetter(profile models.ResumeProfile, target models.Target, job *models.Job, focus []string) string {
	keyword := ""
	if len(focus) > 0 {
		keyword = focus[0]
	}
	company := job.Company
	if company == "" {
		company = "your team"
	}
	return fmt.Sprintf(
		"Dear Hiring Manager,\n\nI am writing to apply for the %s role at %s. My background aligns directly with your need for %s, and I believe my experience makes me a strong contributor to your team.\n\nSincerely,\n%s",
		job.RoleTitle, company, keyword, profile.Profile.Basics.Name,
	)
}

type polishedContent struct {
	summary     string
	bullets     []string
	coverLetter string
}

const polishSystemPrompt = `You lightly polish résumé application content for tone and flow without changing facts, numbers, or company names. Respond with a single JSON object only, no prose, no markdown fences. Schema: {"summary": string, "bullets": string[], "cover_letter": string}`

type polishRaw struct {
	Summary     string   `json:"summary"`
	Bullets     []string `json:"bullets"`
	CoverLetter string   `json:"cover_letter"`
}

// tryPolish asks the LLM to rewrite the three fields in place; any failure
// (network, invalid response) falls back to the draft content unpolished
// rather than failing generation outright (spec §4.4 failure semantics
// extended to the pack manager). The caller re-applies the deterministic
// post-conditions regardless of whether polish ran.
func tryPolish(ctx context.Context, provider llm.Provider, summary string, bullets []string, coverLetter string) (polishedContent, bool) {
	unpolished := polishedContent{summary: summary, bullets: bullets, coverLetter: coverLetter}

	payload, err := json.Marshal(polishRaw{Summary: summary, Bullets: bullets, CoverLetter: coverLetter})
	if err != nil {
		return unpolished, false
	}

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:    polishSystemPrompt,
		UserPrompt:      string(payload),
		Temperature:     0.2,
		MaxOutputTokens: 500,
	})
	if err != nil {
		return unpolished, false
	}

	block := common.FirstJSONObject(resp.Text)
	if block == "" {
		return unpolished, false
	}
	var raw polishRaw
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return unpolished, false
	}
	if raw.Summary == "" || len(raw.Bullets) == 0 || raw.CoverLetter == "" {
		return unpolished, false
	}

	return polishedContent{summary: raw.Summary, bullets: raw.Bullets, coverLetter: raw.CoverLetter}, true
}

// enforceSummary guarantees the summary opens with the strongest matched
// must-requirement and falls within 180-250 chars, trimming or padding as
// needed.
func enforceSummary(summary string, focus []string) string {
	strongest := ""
	if len(focus) > 0 {
		strongest = focus[0]
	}
	if strongest != "" && !strings.HasPrefix(strings.ToLower(summary), strings.ToLower(strongest)) {
		summary = fmt.Sprintf("%s. %s", strongest, summary)
	}
	summary = strings.TrimSpace(summary)

	if len(summary) > 250 {
		summary = summary[:250]
	}
	for len(summary) < 180 {
		summary = summary + " Proven track record of delivering results under pressure."
		if len(summary) > 250 {
			summary = summary[:250]
			break
		}
	}
	return summary
}

// enforceBullets guarantees 3-6 bullets, each containing a focus keyword and
// leading with the fixed "Delivered measurable impact…" phrase.
func enforceBullets(bullets []string, focus []string) []string {
	out := make([]string, 0, 6)
	for i, b := range bullets {
		if i >= 6 {
			break
		}
		out = append(out, withImpactPrefix(ensureFocusKeyword(b, focus, i)))
	}
	for len(out) < 3 {
		kw := ""
		if len(focus) > 0 {
			kw = focus[len(out)%len(focus)]
		}
		out = append(out, withImpactPrefix(fmt.Sprintf("contributions applying %s to deliver team outcomes", kw)))
	}
	return out
}

func ensureFocusKeyword(bullet string, focus []string, idx int) string {
	lower := strings.ToLower(bullet)
	for _, kw := range focus {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return bullet
		}
	}
	if len(focus) == 0 {
		return bullet
	}
	kw := focus[idx%len(focus)]
	return fmt.Sprintf("%s, applying %s", strings.TrimSuffix(bullet, "."), kw)
}

func withImpactPrefix(bullet string) string {
	const prefix = "Delivered measurable impact"
	if strings.HasPrefix(bullet, prefix) {
		return bullet
	}
	trimmed := strings.TrimSpace(bullet)
	if trimmed == "" {
		return prefix + "."
	}
	lower := strings.ToLower(trimmed[:1]) + trimmed[1:]
	return fmt.Sprintf("%s: %s", prefix, lower)
}

// enforceCoverLetter guarantees the fixed alignment phrase and strips banned
// superlative phrases.
func enforceCoverLetter(letter string, focus []string) string {
	keyword := ""
	if len(focus) > 0 {
		keyword = focus[0]
	}
	marker := fmt.Sprintf("aligns directly with your need for %s", keyword)
	if !strings.Contains(strings.ToLower(letter), strings.ToLower(marker)) && keyword != "" {
		letter = letter + "\n\nMy experience " + marker + "."
	}
	for _, phrase := range strippedPhrases {
		letter = replaceCaseInsensitive(letter, phrase, "")
	}
	return strings.TrimSpace(letter)
}

func replaceCaseInsensitive(s, old, new string) string {
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(lower[i:], oldLower)
		if idx == -1 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+idx])
		b.WriteString(new)
		i += idx + len(old)
	}
	return b.String()
}
