package resumepack

import (
	"strings"

	"github.com/jobops/triage/internal/models"
)

// GateConfig carries the readiness-gate thresholds; it mirrors
// common.PackConfig rather than importing it directly, so resumepack stays
// decoupled from the config-loading package.
type GateConfig struct {
	Mode                string // "soft" or "hard"
	MinSummaryChars      int
	MinBullets           int
	MinATSScore          int
	MinMustCoveragePct   int
	MaxPages             int // physical page cap enforced once a PDF has been rendered
}

// CheckResult is the outcome of RunGate: Passed reflects only the checks that
// are enforced (not merely warned) under the configured mode.
type CheckResult struct {
	Passed       bool
	FailedChecks []string
	Warnings     []string
}

// RunGate evaluates the PDF readiness gate. rr_import_ready and the physical
// page-count check are enforced in both modes; in soft mode every other check
// is a warning only, and in hard mode all are enforced.
//
// pageCount is the physical page count of the pack's last rendered PDF, or 0
// if no PDF has been rendered yet (e.g. a manual-edit pass that runs the
// structural checks ahead of export) — the physical-page check is skipped in
// that case rather than failed, since it has nothing to measure.
func RunGate(draft *models.ResumeDraft, job *models.Job, gate GateConfig, pageCount int) CheckResult {
	minSummary := gate.MinSummaryChars
	if minSummary == 0 {
		minSummary = 180
	}
	minBullets := gate.MinBullets
	if minBullets == 0 {
		minBullets = 3
	}
	minATS := gate.MinATSScore
	if minATS == 0 {
		minATS = 60
	}
	minMust := gate.MinMustCoveragePct
	if minMust == 0 {
		minMust = 70
	}
	maxPages := gate.MaxPages
	if maxPages == 0 {
		maxPages = 1
	}

	checks := []struct {
		name   string
		ok     bool
		hard   bool // always enforced even in soft mode
	}{
		{"role_title_present", strings.TrimSpace(job.RoleTitle) != "", false},
		{"company_present", strings.TrimSpace(job.Company) != "", false},
		{"jd_quality_usable", job.FetchStatus == models.FetchStatusOK || job.FetchStatus == "", false},
		{"summary_min_chars", len(draft.Pack.Summary) >= minSummary, false},
		{"bullets_min_count", len(draft.Pack.Bullets) >= minBullets, false},
		{"ats_min_score", draft.ATS.Score >= minATS, false},
		{"must_coverage_min_pct", draft.ATS.MustCoveragePct >= minMust, false},
		{"rr_import_ready", draft.RRExport.Metadata.ImportReady, true},
	}
	if pageCount > 0 {
		// Physical check alongside the structural summary/bullet-count caps
		// enforceOnePageCaps applies before rendering: those caps are a
		// heuristic, this is what pdfcpu actually measured on the page fpdf
		// produced.
		checks = append(checks, struct {
			name string
			ok   bool
			hard bool
		}{"pdf_page_count_within_limit", pageCount <= maxPages, true})
	}

	var result CheckResult
	result.Passed = true
	for _, c := range checks {
		if c.ok {
			continue
		}
		enforced := gate.Mode == "hard" || c.hard
		if enforced {
			result.Passed = false
			result.FailedChecks = append(result.FailedChecks, c.name)
		} else {
			result.Warnings = append(result.Warnings, c.name)
		}
	}
	return result
}

// enforceOnePageCaps trims pack content to fit on one page: summary capped at
// 320 chars, bullets capped at 4 in hard mode (6 in soft mode, matching the
// draft-building cap already applied upstream).
func enforceOnePageCaps(pack models.PackContent, mode string) models.PackContent {
	if len(pack.Summary) > 320 {
		pack.Summary = pack.Summary[:320]
	}
	maxBullets := 6
	if mode == "hard" {
		maxBullets = 4
	}
	if len(pack.Bullets) > maxBullets {
		pack.Bullets = pack.Bullets[:maxBullets]
	}
	return pack
}
