package resumepack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jobops/triage/internal/models"
)

// pmRoleRe matches role titles that select the PM-v1 rubric.
var pmRoleRe = regexp.MustCompile(`(?i)\b(product manager|product owner|program manager|pm)\b`)

// ScoreATS computes the ATS coverage score and rubric for pack against job
// and target: score = round(0.7*must_coverage% + 0.3*nice_coverage%), with
// nice_coverage defaulting to 60% when the target has no nice keywords.
func ScoreATS(pack models.PackContent, job *models.Job, target models.Target, atsMode string) models.ATSResult {
	coverageText := strings.ToLower(pack.Summary + " " + strings.Join(pack.Bullets, " ") + " " + pack.CoverLetter)

	mustTerms := selectTerms(job.MustKeywords, target.MustKeywords, pack.FocusKeywords, atsMode)
	niceTerms := selectTerms(job.NiceKeywords, target.NiceKeywords, nil, atsMode)

	mustCoverage, missingMust := coveragePct(coverageText, mustTerms)
	var niceCoverage int
	var missingNice []string
	if len(niceTerms) == 0 {
		niceCoverage = 60
	} else {
		niceCoverage, missingNice = coveragePct(coverageText, niceTerms)
	}

	score := int(roundHalfUp(0.7*float64(mustCoverage) + 0.3*float64(niceCoverage)))

	missing := append([]string{}, missingMust...)
	missing = append(missing, missingNice...)

	notes := ""
	if len(missing) > 0 {
		notes = fmt.Sprintf("%d keyword(s) not found in the tailored content.", len(missing))
	}

	return models.ATSResult{
		Score:           score,
		MustCoveragePct: mustCoverage,
		NiceCoveragePct: niceCoverage,
		MissingKeywords: missing,
		Notes:           notes,
		Rubric:          BuildRubric(job, target, pack, mustCoverage, niceCoverage),
	}
}

// selectTerms narrows a requirement list to the caller's focus keywords when
// atsMode is "selected_only"; "all" (or unrecognized) uses every term from
// both the job and the target, deduped.
func selectTerms(jobTerms, targetTerms, focus []string, atsMode string) []string {
	if atsMode == "selected_only" {
		return dedupeLower(focus)
	}
	return dedupeLower(append(append([]string{}, jobTerms...), targetTerms...))
}

func dedupeLower(terms []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func coveragePct(text string, terms []string) (int, []string) {
	if len(terms) == 0 {
		return 100, nil
	}
	var missing []string
	hit := 0
	for _, t := range terms {
		if strings.Contains(text, strings.ToLower(t)) {
			hit++
		} else {
			missing = append(missing, t)
		}
	}
	return int(roundHalfUp(float64(hit) / float64(len(terms)) * 100)), missing
}

func roundHalfUp(f float64) float64 {
	return float64(int(f + 0.5))
}

// BuildRubric selects PM-v1 (5 keyword-bucket dimensions) when the role title
// matches a PM-shaped regex, else the generic 4-dimension rubric, and
// populates the legacy pm_rubric alias whenever PM-v1 applies.
func BuildRubric(job *models.Job, target models.Target, pack models.PackContent, mustCoverage, niceCoverage int) models.RubricResult {
	profile := target.RubricProfile
	if profile == "" || profile == models.RubricAuto {
		if pmRoleRe.MatchString(job.RoleTitle) {
			profile = models.RubricPMV1
		} else {
			profile = models.RubricTargetGenericV1
		}
	}

	if profile == models.RubricPMV1 {
		dims := pmV1Dimensions(job, pack, mustCoverage, niceCoverage)
		return models.RubricResult{Profile: models.RubricPMV1, Dimensions: dims, PMRubric: dims}
	}

	return models.RubricResult{Profile: models.RubricTargetGenericV1, Dimensions: genericDimensions(job, target, mustCoverage, niceCoverage)}
}

// pmV1Dimensions scores five PM-specific keyword buckets: strategy,
// execution, stakeholder/leadership, technical fluency, and data/metrics —
// each as the percentage of that bucket's marker words found in the tailored
// content — and adds must_coverage and nice_coverage as two further keys.
func pmV1Dimensions(job *models.Job, pack models.PackContent, mustCoverage, niceCoverage int) map[string]int {
	text := strings.ToLower(pack.Summary + " " + strings.Join(pack.Bullets, " ") + " " + pack.CoverLetter)
	buckets := map[string][]string{
		"strategy":    {"strategy", "roadmap", "vision", "prioritization"},
		"execution":   {"delivered", "shipped", "launched", "drove"},
		"leadership":  {"led", "managed", "mentored", "stakeholder"},
		"technical":   {"technical", "engineering", "architecture", "api"},
		"data_metrics": {"data", "metrics", "kpi", "analytics"},
	}
	dims := map[string]int{}
	for name, markers := range buckets {
		hit := 0
		for _, m := range markers {
			if strings.Contains(text, m) {
				hit++
			}
		}
		dims[name] = int(roundHalfUp(float64(hit) / float64(len(markers)) * 100))
	}
	dims["must_coverage"] = mustCoverage
	dims["nice_coverage"] = niceCoverage
	return dims
}

func genericDimensions(job *models.Job, target models.Target, mustCoverage, niceCoverage int) map[string]int {
	roleFit := 0
	if target.PrimaryRole != "" && strings.Contains(strings.ToLower(job.RoleTitle), strings.ToLower(target.PrimaryRole)) {
		roleFit = 100
	} else if target.PrimaryRole != "" {
		roleFit = 40
	}

	seniorityLocationFit := 50
	if target.SeniorityPref != "" && strings.EqualFold(target.SeniorityPref, job.Seniority) {
		seniorityLocationFit += 25
	}
	if target.LocationPref != "" && strings.Contains(strings.ToLower(job.Location), strings.ToLower(target.LocationPref)) {
		seniorityLocationFit += 25
	}
	if seniorityLocationFit > 100 {
		seniorityLocationFit = 100
	}

	return map[string]int{
		"must_coverage":           mustCoverage,
		"nice_coverage":           niceCoverage,
		"role_language_fit":       roleFit,
		"seniority_location_fit":  seniorityLocationFit,
	}
}
