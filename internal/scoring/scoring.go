// Package scoring runs the per-job state machine: a heuristic reject gate,
// optional field extraction, an LLM scoring pass against the user's targets,
// a verdict merge, a status transition, and a telemetry write.
package scoring

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/extractor"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/models"
)

// Reason identifies why a job's status was decided, both for the transition
// table and for the telemetry row.
type Reason string

const (
	ReasonIngestReady         Reason = "ingest_ready"
	ReasonIngestNeedsManual   Reason = "ingest_needs_manual"
	ReasonIngestAIUnavailable Reason = "ingest_ai_unavailable"
	ReasonHeuristicRejected   Reason = "heuristic_rejected"
	ReasonScored              Reason = "scored"
)

// Config tunes the heuristic gate and the shortlist/archive thresholds.
type Config struct {
	MinJDChars         int
	MinTargetSignal    int
	ShortlistThreshold int
	ArchiveThreshold   int
	MaxOutputTokens    int
}

func (c Config) withDefaults() Config {
	if c.MinJDChars <= 0 {
		c.MinJDChars = 120
	}
	if c.MinTargetSignal <= 0 {
		c.MinTargetSignal = 8
	}
	if c.ShortlistThreshold <= 0 {
		c.ShortlistThreshold = 75
	}
	if c.ArchiveThreshold <= 0 {
		c.ArchiveThreshold = 55
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 500
	}
	return c
}

// Input is everything Run needs for one job's pass through the pipeline.
type Input struct {
	Job               *models.Job
	Targets           []models.Target
	ExistingExtracted *extractor.Extracted // non-nil skips the extract stage (rescore path)
	AIAvailable       bool
	NeedsManual       bool // computed by the ingestion orchestrator from the JD policy table
	Source            string
}

// Result is Run's output: the mutated job, its telemetry row, and any
// potential contacts the AI scoring stage surfaced.
type Result struct {
	ScoringRun        models.ScoringRun
	PotentialContacts []string
}

// Run executes start -> heuristic -> extract -> ai_reason -> verdict ->
// transition -> telemetry against input.Job in place.
func Run(ctx context.Context, provider llm.Provider, input Input, cfg Config) Result {
	cfg = cfg.withDefaults()
	job := input.Job
	run := models.ScoringRun{
		ID:        common.NewID("run"),
		JobKey:    job.JobKey,
		Source:    input.Source,
		CreatedAt: nowMillis(),
	}
	totalStart := time.Now()

	if !input.AIAvailable {
		applyTransition(job, ReasonIngestAIUnavailable, false, 0, cfg)
		run.FinalStatus = job.Status
		run.TotalLatencyMS = time.Since(totalStart).Milliseconds()
		return Result{ScoringRun: run}
	}

	if input.NeedsManual && job.JDTextClean == "" {
		applyTransition(job, ReasonIngestNeedsManual, false, 0, cfg)
		run.FinalStatus = job.Status
		run.TotalLatencyMS = time.Since(totalStart).Milliseconds()
		return Result{ScoringRun: run}
	}

	heuristicStart := time.Now()
	rejected, reasons := heuristicGate(job, input.Targets, cfg)
	run.StageMetrics = append(run.StageMetrics, models.StageMetric{
		Stage: "heuristic", Status: stageStatus(!rejected), LatencyMS: time.Since(heuristicStart).Milliseconds(),
	})
	run.HeuristicPassed = !rejected
	run.HeuristicReasons = reasons

	if rejected {
		applyTransition(job, ReasonHeuristicRejected, false, 0, cfg)
		run.FinalStatus = job.Status
		run.RejectTriggered = true
		run.TotalLatencyMS = time.Since(totalStart).Milliseconds()
		return Result{ScoringRun: run}
	}

	if input.ExistingExtracted != nil {
		mergeExtracted(job, *input.ExistingExtracted)
	} else {
		extractStart := time.Now()
		extracted, err := extractor.ExtractJD(ctx, provider, job.JDTextClean, job.JobURL, job.SourceDomain, cfg.MaxOutputTokens)
		status := "ok"
		if err != nil {
			status = "ai_failed"
		} else {
			mergeExtracted(job, extracted)
		}
		run.StageMetrics = append(run.StageMetrics, models.StageMetric{
			Stage: "extract", Status: status, LatencyMS: time.Since(extractStart).Milliseconds(),
		})
	}

	aiStart := time.Now()
	scoreResult, err := scoreAgainstTargets(ctx, provider, job, input.Targets, cfg.MaxOutputTokens)
	aiLatency := time.Since(aiStart).Milliseconds()
	run.AILatencyMS = aiLatency
	if err != nil {
		run.StageMetrics = append(run.StageMetrics, models.StageMetric{Stage: "ai_reason", Status: "ai_failed", LatencyMS: aiLatency})
		run.FinalStatus = job.Status
		run.TotalLatencyMS = time.Since(totalStart).Milliseconds()
		return Result{ScoringRun: run}
	}
	run.StageMetrics = append(run.StageMetrics, models.StageMetric{Stage: "ai_reason", Status: "ok", LatencyMS: aiLatency})
	run.AIModel = scoreResult.Model
	run.AITokensIn = scoreResult.TokensIn
	run.AITokensOut = scoreResult.TokensOut
	run.AITokensTotal = scoreResult.TokensIn + scoreResult.TokensOut

	verdictStart := time.Now()
	finalScore, rejectTriggered := applyVerdict(job, input.Targets, scoreResult)
	run.StageMetrics = append(run.StageMetrics, models.StageMetric{Stage: "verdict", Status: "ok", LatencyMS: time.Since(verdictStart).Milliseconds()})
	run.RejectTriggered = rejectTriggered
	run.FinalScore = &finalScore

	job.PrimaryTargetID = scoreResult.PrimaryTargetID
	job.ScoreMust = scoreResult.ScoreMust
	job.ScoreNice = scoreResult.ScoreNice
	job.ReasonTopMatches = scoreResult.ReasonTopMatches
	now := nowMillis()
	job.LastScoredAt = &now

	applyTransition(job, ReasonScored, true, finalScore, cfg)
	run.FinalStatus = job.Status
	run.TotalLatencyMS = time.Since(totalStart).Milliseconds()

	return Result{ScoringRun: run, PotentialContacts: scoreResult.PotentialContacts}
}

func stageStatus(passed bool) string {
	if passed {
		return "passed"
	}
	return "rejected"
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// heuristicGate rejects a job before any LLM call when its JD is too short,
// when it carries a reject-keyword hit, or when no target shows enough
// overlap signal to be worth scoring.
func heuristicGate(job *models.Job, targets []models.Target, cfg Config) (bool, []string) {
	var reasons []string

	if len(job.JDTextClean) < cfg.MinJDChars {
		reasons = append(reasons, "jd_too_short")
	}

	combinedReject := combinedRejectKeywords(job, targets)
	if hit := firstKeywordHit(job.JDTextClean, combinedReject); hit != "" {
		reasons = append(reasons, "reject_keyword:"+hit)
	}

	bestSignal := 0
	for _, target := range targets {
		if s := targetSignal(job, target); s > bestSignal {
			bestSignal = s
		}
	}
	if len(targets) > 0 && bestSignal < cfg.MinTargetSignal {
		reasons = append(reasons, "insufficient_target_signal")
	}

	return len(reasons) > 0, reasons
}

func combinedRejectKeywords(job *models.Job, targets []models.Target) []string {
	out := append([]string{}, job.RejectKeywords...)
	for _, t := range targets {
		out = append(out, t.RejectKeywords...)
	}
	return out
}

func firstKeywordHit(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

// targetSignal scores overlap between a target's role/must-keywords and the
// job's role title plus JD text: a primary-role hit adds 4 and each matched
// must-keyword adds 1, however often it occurs.
func targetSignal(job *models.Job, target models.Target) int {
	haystack := strings.ToLower(job.RoleTitle + " " + job.JDTextClean)
	score := 0
	if target.PrimaryRole != "" && strings.Contains(haystack, strings.ToLower(target.PrimaryRole)) {
		score += 4
	}
	for _, kw := range target.MustKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			score++
		}
	}
	return score
}

// mergeExtracted copies non-empty extracted fields onto job, preserving
// existing non-empty values and only letting a non-empty extracted array
// replace an empty one.
func mergeExtracted(job *models.Job, ex extractor.Extracted) {
	if job.Company == "" && ex.Company != "" {
		job.Company = ex.Company
	}
	if job.RoleTitle == "" && ex.RoleTitle != "" {
		job.RoleTitle = ex.RoleTitle
	}
	if job.Location == "" && ex.Location != "" {
		job.Location = ex.Location
	}
	if job.WorkMode == "" && ex.WorkMode != "" {
		job.WorkMode = ex.WorkMode
	}
	if job.Seniority == "" && ex.Seniority != "" {
		job.Seniority = ex.Seniority
	}
	if job.ExperienceYearsMin == nil {
		job.ExperienceYearsMin = ex.ExperienceYearsMin
	}
	if job.ExperienceYearsMax == nil {
		job.ExperienceYearsMax = ex.ExperienceYearsMax
	}
	if len(job.MustKeywords) == 0 && len(ex.MustKeywords) > 0 {
		job.MustKeywords = ex.MustKeywords
	}
	if len(job.NiceKeywords) == 0 && len(ex.NiceKeywords) > 0 {
		job.NiceKeywords = ex.NiceKeywords
	}
	if len(job.RejectKeywords) == 0 && len(ex.RejectKeywords) > 0 {
		job.RejectKeywords = ex.RejectKeywords
	}
	if len(job.Skills) == 0 && len(ex.Skills) > 0 {
		job.Skills = ex.Skills
	}
}

const scoringSystemPrompt = `You score a job opportunity against a list of candidate targets. Respond with a single JSON object only, no prose, no markdown fences. Schema:
{
  "primary_target_id": string, "score_must": number, "score_nice": number, "final_score": number,
  "reject_triggered": boolean, "reason_top_matches": string, "potential_contacts": string[]
}
potential_contacts are full names of hiring managers or recruiters explicitly named in the job description, never invented.`

type aiScoreRaw struct {
	PrimaryTargetID   string   `json:"primary_target_id"`
	ScoreMust         int      `json:"score_must"`
	ScoreNice         int      `json:"score_nice"`
	FinalScore        int      `json:"final_score"`
	RejectTriggered   bool     `json:"reject_triggered"`
	ReasonTopMatches  string   `json:"reason_top_matches"`
	PotentialContacts []string `json:"potential_contacts"`
}

type aiScoreResult struct {
	aiScoreRaw
	Model     string
	TokensIn  int
	TokensOut int
}

func scoreAgainstTargets(ctx context.Context, provider llm.Provider, job *models.Job, targets []models.Target, maxTokens int) (aiScoreResult, error) {
	payload, err := json.Marshal(map[string]interface{}{"job": job, "targets": targets})
	if err != nil {
		return aiScoreResult{}, apperr.Wrap(apperr.KindInternal, "failed to marshal scoring payload", err)
	}

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:    scoringSystemPrompt,
		UserPrompt:      string(payload),
		Temperature:     0,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return aiScoreResult{}, err
	}

	block := common.FirstJSONObject(resp.Text)
	if block == "" {
		return aiScoreResult{}, apperr.New(apperr.KindExternalFailure, "InvalidModelJSON: no JSON object in scorer response")
	}
	var raw aiScoreRaw
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return aiScoreResult{}, apperr.Wrap(apperr.KindExternalFailure, "InvalidModelJSON: failed to decode scorer response", err)
	}

	raw.PotentialContacts = sanitizePotentialContacts(raw.PotentialContacts)

	return aiScoreResult{aiScoreRaw: raw, Model: resp.Model, TokensIn: resp.TokensIn, TokensOut: resp.TokensOut}, nil
}

var singleTokenCapitalizedRe = regexp.MustCompile(`^[A-Z][a-z]+$`)

var contactRoleBoilerplate = map[string]bool{
	"hiring manager": true, "recruiter": true, "hr team": true, "talent acquisition": true,
}

// sanitizePotentialContacts drops names under 3 characters, names containing
// digits, single-token names that aren't capitalized, and banned
// role-boilerplate strings; dedupes case-insensitively; caps at 5.
func sanitizePotentialContacts(names []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, 5)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if len(name) < 3 {
			continue
		}
		if strings.ContainsAny(name, "0123456789") {
			continue
		}
		lower := strings.ToLower(name)
		if contactRoleBoilerplate[lower] {
			continue
		}
		fields := strings.Fields(name)
		if len(fields) == 1 && !singleTokenCapitalizedRe.MatchString(fields[0]) {
			continue
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, name)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// applyVerdict merges the AI's reject_triggered with a literal "Reject:"
// marker in the JD and any per-target reject-keyword hit; any of the three
// zeroes the final score, otherwise it is clamped to [0,100].
func applyVerdict(job *models.Job, targets []models.Target, score aiScoreResult) (int, bool) {
	rejectTriggered := score.RejectTriggered
	var reasons []string
	if rejectTriggered {
		reasons = append(reasons, "ai_reject_triggered")
	}
	if strings.Contains(job.JDTextClean, "Reject:") {
		rejectTriggered = true
		reasons = append(reasons, "jd_reject_marker")
	}
	for _, t := range targets {
		if hit := firstKeywordHit(job.JDTextClean, t.RejectKeywords); hit != "" {
			rejectTriggered = true
			reasons = append(reasons, "target_reject_keyword:"+hit)
		}
	}

	finalScore := score.FinalScore
	if rejectTriggered {
		finalScore = 0
	} else {
		if finalScore < 0 {
			finalScore = 0
		}
		if finalScore > 100 {
			finalScore = 100
		}
	}

	job.RejectTriggered = rejectTriggered
	job.RejectReasons = reasons
	job.FinalScore = &finalScore

	return finalScore, rejectTriggered
}

// applyTransition sets job.Status/SystemStatus per the spec's transition
// table, never regressing a terminal status.
func applyTransition(job *models.Job, reason Reason, scored bool, finalScore int, cfg Config) {
	if job.Status.IsTerminal() {
		return
	}

	switch reason {
	case ReasonIngestReady:
		job.Status = models.JobStatusNew
		job.SystemStatus = nil
	case ReasonIngestNeedsManual:
		job.Status = models.JobStatusLinkOnly
		sysStatus := models.SystemStatusNeedsManualJD
		job.SystemStatus = &sysStatus
	case ReasonIngestAIUnavailable:
		job.Status = models.JobStatusLinkOnly
		sysStatus := models.SystemStatusAIUnavailable
		job.SystemStatus = &sysStatus
	case ReasonHeuristicRejected:
		job.Status = models.JobStatusRejected
		sysStatus := models.SystemStatusRejectedHeuristic
		job.SystemStatus = &sysStatus
		rejectedAt := nowMillis()
		job.RejectedAt = &rejectedAt
	case ReasonScored:
		job.SystemStatus = nil
		switch {
		case job.RejectTriggered:
			job.Status = models.JobStatusRejected
			rejectedAt := nowMillis()
			job.RejectedAt = &rejectedAt
		case finalScore >= cfg.ShortlistThreshold:
			job.Status = models.JobStatusShortlisted
		case finalScore < cfg.ArchiveThreshold:
			job.Status = models.JobStatusArchived
			archivedAt := nowMillis()
			job.ArchivedAt = &archivedAt
		default:
			job.Status = models.JobStatusScored
		}
	}
}
