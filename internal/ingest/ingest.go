// Package ingest runs the per-URL ingestion pipeline: normalize, resolve the
// job description, extract and score when usable, and upsert the resulting
// job row, fanning URLs out across a bounded worker pool.
package ingest

import (
	"context"
	"net/http"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/evidence"
	"github.com/jobops/triage/internal/extractor"
	"github.com/jobops/triage/internal/jdresolver"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/models"
	"github.com/jobops/triage/internal/scoring"
	"github.com/jobops/triage/internal/urlnorm"
)

// Store is the subset of the storage gateway the orchestrator needs: look up
// an existing job by key, and upsert the result with status-preservation.
type Store interface {
	GetJob(ctx context.Context, jobKey string) (*models.Job, bool, error)
	UpsertJob(ctx context.Context, job *models.Job) error
	UpsertEvidence(ctx context.Context, rows []models.JobEvidence) error
	ListTargets(ctx context.Context) ([]models.Target, error)
	PrimaryResumeProfile(ctx context.Context) (models.ProfileJSON, error)
}

// Dedup guards against re-processing the same inbound message twice, keyed
// by the channel's message id (spec §5: "Inbound media extraction
// deduplicates on message_id").
type Dedup interface {
	SeenMessage(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store      Store
	Dedup      Dedup
	Provider   llm.Provider // nil means AI is unavailable for this run
	HTTPClient *http.Client
	Logger     arbor.ILogger
	JDConfig   jdresolver.Config
	Scoring    scoring.Config
	Concurrency int // RECOVER_CONCURRENCY, bounded [1,6]
}

// Request is one ingestion call's input: a batch of raw URLs from a single
// channel, plus any inbound email/text context used as a JD fallback.
type Request struct {
	RawURLs   []string
	Email     jdresolver.EmailContext
	Channel   string
	MessageID string // empty when the channel has no dedup key
}

// ItemResult is one URL's outcome, used to build the per-source summary.
type ItemResult struct {
	RawURL            string
	JobKey            string
	Action            string // ignored|inserted|updated|error
	Bucket            string // recovered/manual_needed/needs_ai/blocked/low_quality/link_only/ignored/inserted/updated/error
	PotentialContacts []string
	Err               error
}

// Result is the merged outcome of an ingestion call: per-source summary
// counters and the individual item results.
type Result struct {
	Summary map[string]int
	Items   []ItemResult
}

// Run executes the per-URL pipeline across a bounded worker pool and merges
// the results into one summary.
func Run(ctx context.Context, deps Deps, req Request) Result {
	if req.MessageID != "" && deps.Dedup != nil {
		seen, err := deps.Dedup.SeenMessage(ctx, req.MessageID)
		if err == nil && seen {
			deps.Logger.Info().Str("message_id", req.MessageID).Msg("Ingest skipped: message_id already processed")
			return Result{Summary: map[string]int{}}
		}
	}

	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	if concurrency > 6 {
		concurrency = 6
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	resultsChan := make(chan ItemResult, len(req.RawURLs))

	for _, rawURL := range req.RawURLs {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			resultsChan <- processURL(ctx, deps, u, req)
		}(rawURL)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	result := Result{Summary: map[string]int{}}
	for item := range resultsChan {
		result.Items = append(result.Items, item)
		result.Summary[item.Bucket]++
	}

	if req.MessageID != "" && deps.Dedup != nil {
		if err := deps.Dedup.MarkSeen(ctx, req.MessageID); err != nil {
			deps.Logger.Warn().Err(err).Str("message_id", req.MessageID).Msg("Failed to record message_id dedup marker")
		}
	}

	return result
}

// processURL runs one URL through normalize -> resolve -> extract/score ->
// upsert, emitting an INGEST_FALLBACK log line when the JD ended up needing
// manual entry.
func processURL(ctx context.Context, deps Deps, rawURL string, req Request) ItemResult {
	norm, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return ItemResult{RawURL: rawURL, Action: "ignored", Bucket: "ignored", Err: err}
	}
	if norm.Ignored {
		return ItemResult{RawURL: rawURL, Action: "ignored", Bucket: "ignored"}
	}

	existing, exists, err := deps.Store.GetJob(ctx, norm.JobKey)
	if err != nil {
		deps.Logger.Warn().Err(err).Str("job_key", norm.JobKey).Msg("Failed to look up existing job")
	}

	resolved := jdresolver.Resolve(ctx, deps.HTTPClient, norm.SourceDomain, norm.JobURL, req.Email, deps.JDConfig)

	var jobID *string
	if norm.JobID != "" {
		jobID = &norm.JobID
	}
	job := &models.Job{
		JobKey:       norm.JobKey,
		JobURL:       norm.JobURL,
		SourceDomain: norm.SourceDomain,
		JobID:        jobID,
		JDTextClean:  resolved.JDTextClean,
		JDSource:     resolved.JDSource,
		FetchStatus:  resolved.FetchStatus,
		FetchDebug:   resolved.Debug,
		Status:       models.JobStatusNew,
		CreatedAt:    common.NowMillis(),
	}
	if exists {
		job = existing
		job.JDTextClean = resolved.JDTextClean
		job.JDSource = resolved.JDSource
		job.FetchStatus = resolved.FetchStatus
		job.FetchDebug = resolved.Debug
	}
	job.UpdatedAt = common.NowMillis()

	policy := jdresolver.PolicyFor(string(norm.SourceDomain))
	needsManual := resolved.JDTextClean == "" || (policy.RequireFetchedHighConf && resolved.Debug.Confidence != "high")
	aiAvailable := deps.Provider != nil

	var potentialContacts []string
	bucket := "updated"
	if !exists {
		bucket = "inserted"
	}

	if !needsManual && aiAvailable && len(resolved.JDTextClean) >= 180 {
		targets, terr := deps.Store.ListTargets(ctx)
		if terr != nil {
			deps.Logger.Warn().Err(terr).Msg("Failed to load targets for scoring")
		}
		result := scoring.Run(ctx, deps.Provider, scoring.Input{
			Job: job, Targets: targets, AIAvailable: true, Source: "ingest",
		}, deps.Scoring)
		potentialContacts = result.PotentialContacts
		bucket = "recovered"

		if profile, perr := deps.Store.PrimaryResumeProfile(ctx); perr == nil {
			ex := extractor.Extracted{
				MustKeywords: job.MustKeywords, NiceKeywords: job.NiceKeywords,
				RejectKeywords: job.RejectKeywords, Skills: job.Skills,
			}
			rows := evidence.BuildRows(job.JobKey, ex, job.JDTextClean, profile)
			if err := deps.Store.UpsertEvidence(ctx, rows); err != nil {
				deps.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("Failed to upsert evidence rows")
			}
		}
	} else if !aiAvailable {
		scoring.Run(ctx, deps.Provider, scoring.Input{Job: job, AIAvailable: false, Source: "ingest"}, deps.Scoring)
		bucket = "needs_ai"
	} else if needsManual {
		scoring.Run(ctx, deps.Provider, scoring.Input{Job: job, AIAvailable: aiAvailable, NeedsManual: true, Source: "ingest"}, deps.Scoring)
		bucket = manualBucket(resolved)
	}

	if err := deps.Store.UpsertJob(ctx, job); err != nil {
		return ItemResult{RawURL: rawURL, JobKey: job.JobKey, Action: "error", Bucket: "error", Err: err}
	}

	if needsManual {
		deps.Logger.Info().Str("job_key", job.JobKey).Str("fetch_status", string(job.FetchStatus)).Msg("INGEST_FALLBACK")
	}

	action := "inserted"
	if exists {
		action = "updated"
	}
	return ItemResult{RawURL: rawURL, JobKey: job.JobKey, Action: action, Bucket: bucket, PotentialContacts: potentialContacts}
}

func manualBucket(resolved jdresolver.Resolved) string {
	switch resolved.FetchStatus {
	case models.FetchStatusBlocked:
		return "blocked"
	case models.FetchStatusLowQuality:
		return "low_quality"
	default:
		if resolved.JDTextClean == "" {
			return "link_only"
		}
		return "manual_needed"
	}
}
