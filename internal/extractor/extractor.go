// Package extractor turns a cleaned job description into structured fields
// (company, role, seniority, keyword groups) via a pinned LLM prompt, with
// deterministic sanitization and URL-derived fallbacks when the model omits
// a field.
package extractor

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/models"
)

// Extracted is the structured field set pulled from a job description.
type Extracted struct {
	Company            string
	RoleTitle          string
	Location           string
	WorkMode           models.WorkMode
	Seniority          string
	ExperienceYearsMin *int
	ExperienceYearsMax *int
	MustKeywords       []string
	NiceKeywords       []string
	RejectKeywords     []string
	Skills             []string
}

const systemPrompt = `You extract structured fields from a job description. Respond with a single JSON object only, no prose, no markdown fences. Schema:
{
  "company": string, "role_title": string, "location": string, "work_mode": "Onsite"|"Hybrid"|"Remote",
  "seniority": string, "experience_years_min": number|null, "experience_years_max": number|null,
  "must_keywords": string[], "nice_keywords": string[], "reject_keywords": string[], "skills": string[]
}
Omit a field (or use null/empty) when the job description does not state it. Never invent a company or title.`

type rawExtraction struct {
	Company            string      `json:"company"`
	RoleTitle          string      `json:"role_title"`
	Location           string      `json:"location"`
	WorkMode           string      `json:"work_mode"`
	Seniority          string      `json:"seniority"`
	ExperienceYearsMin interface{} `json:"experience_years_min"`
	ExperienceYearsMax interface{} `json:"experience_years_max"`
	MustKeywords       interface{} `json:"must_keywords"`
	NiceKeywords       interface{} `json:"nice_keywords"`
	RejectKeywords     interface{} `json:"reject_keywords"`
	Skills             interface{} `json:"skills"`
}

// ExtractJD calls provider with the pinned extraction prompt and sanitizes
// the result, falling back to the job URL's slug for the role title and to
// a JD regex scan for the company when the model omits either.
func ExtractJD(ctx context.Context, provider llm.Provider, jdText, jobURL string, source models.SourceDomain, maxOutputTokens int) (Extracted, error) {
	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:    systemPrompt,
		UserPrompt:      jdText,
		Temperature:     0,
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return Extracted{}, err
	}

	jsonBlock := common.FirstJSONObject(resp.Text)
	if jsonBlock == "" {
		return Extracted{}, apperr.New(apperr.KindExternalFailure, "InvalidModelJSON: no JSON object in model response")
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(jsonBlock), &raw); err != nil {
		return Extracted{}, apperr.Wrap(apperr.KindExternalFailure, "InvalidModelJSON: failed to decode model response", err)
	}

	extracted := sanitize(raw, jdText, jobURL)
	return extracted, nil
}

var (
	hostnamePrefixRe  = regexp.MustCompile(`^(www\.?|https?://)`)
	yearsOnlyRe       = regexp.MustCompile(`^\d+\+?\s*years?\s*(of\s*)?(experience)?$`)
	aboutCompanyRe    = regexp.MustCompile(`(?i)about\s+([A-Z][\w&.,' -]{1,60})`)
	companyColonRe    = regexp.MustCompile(`(?i)company:\s*([A-Z][\w&.,' -]{1,60})`)
	atCompanyPipeRe   = regexp.MustCompile(`(?i)\bat\s+([A-Z][\w&.,' -]{1,60})\s*\|`)
	companyBoilerplate = map[string]bool{
		"unknown": true, "n/a": true, "na": true, "confidential": true,
		"click here": true, "company": true, "our client": true,
	}
)

func sanitize(raw rawExtraction, jdText, jobURL string) Extracted {
	ex := Extracted{
		Location:  strings.TrimSpace(raw.Location),
		Seniority: strings.TrimSpace(raw.Seniority),
		WorkMode:  models.WorkMode(strings.TrimSpace(raw.WorkMode)),

		MustKeywords:   common.ParseFlexibleList(raw.MustKeywords),
		NiceKeywords:   common.ParseFlexibleList(raw.NiceKeywords),
		RejectKeywords: common.ParseFlexibleList(raw.RejectKeywords),
		Skills:         common.ParseFlexibleList(raw.Skills),

		ExperienceYearsMin: toIntPtr(raw.ExperienceYearsMin),
		ExperienceYearsMax: toIntPtr(raw.ExperienceYearsMax),
	}

	role := strings.TrimSpace(raw.RoleTitle)
	if !isPlausibleRoleTitle(role) {
		role = ""
	}
	if role == "" {
		role = roleFromURLSlug(jobURL)
	}
	ex.RoleTitle = role

	company := strings.TrimSpace(raw.Company)
	if !isLikelyCompany(company) {
		company = ""
	}
	if company == "" {
		company = companyFromJDText(jdText)
	}
	ex.Company = company

	return ex
}

// isPlausibleRoleTitle rejects noise: a single token over 24 chars, a
// years-of-experience-only string, or a hostname-like prefix.
func isPlausibleRoleTitle(title string) bool {
	if title == "" {
		return false
	}
	if !strings.Contains(title, " ") && len(title) > 24 {
		return false
	}
	if yearsOnlyRe.MatchString(strings.ToLower(title)) {
		return false
	}
	if hostnamePrefixRe.MatchString(strings.ToLower(title)) {
		return false
	}
	return true
}

// isLikelyCompany requires length 2-80, at most 8 words, at least one
// letter, and rejects a small boilerplate list.
func isLikelyCompany(name string) bool {
	if len(name) < 2 || len(name) > 80 {
		return false
	}
	if len(strings.Fields(name)) > 8 {
		return false
	}
	hasLetter := false
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	if companyBoilerplate[strings.ToLower(strings.TrimSpace(name))] {
		return false
	}
	return true
}

func companyFromJDText(jdText string) string {
	for _, re := range []*regexp.Regexp{aboutCompanyRe, companyColonRe, atCompanyPipeRe} {
		if m := re.FindStringSubmatch(jdText); len(m) == 2 {
			candidate := strings.TrimSpace(m[1])
			if isLikelyCompany(candidate) {
				return candidate
			}
		}
	}
	return ""
}

var trailingDigitsSlugRe = regexp.MustCompile(`-\d+$`)

// roleFromURLSlug derives a role title from the last non-empty path
// segment of a job URL, e.g. "/job-listings-senior-backend-engineer-123"
// -> "Senior Backend Engineer".
func roleFromURLSlug(jobURL string) string {
	parsed, err := url.Parse(jobURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	slug := segments[len(segments)-1]
	slug = trailingDigitsSlugRe.ReplaceAllString(slug, "")
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.TrimPrefix(slug, "job-listings-")
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func toIntPtr(v interface{}) *int {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case string:
		if n == "" {
			return nil
		}
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return &parsed
		}
		return nil
	default:
		return nil
	}
}
