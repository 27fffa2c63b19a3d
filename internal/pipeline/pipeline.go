// Package pipeline wires the scheduler's Pollers, Recovery, and ScorePending
// stages against the storage gateway and the ingestion/scoring packages,
// closing the loop the scheduler only describes as an ordered stage list.
package pipeline

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/evidence"
	"github.com/jobops/triage/internal/extractor"
	"github.com/jobops/triage/internal/ingest"
	"github.com/jobops/triage/internal/jdresolver"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/models"
	"github.com/jobops/triage/internal/pollers"
	"github.com/jobops/triage/internal/scheduler"
	"github.com/jobops/triage/internal/scoring"
	"github.com/jobops/triage/internal/storage/sqlite"
)

// recoveryBatchSize bounds how many jobs a single recovery/score-pending
// stage processes per cron cycle; remaining candidates wait for the next
// cycle rather than the stage running unbounded inside its budget slice.
const recoveryBatchSize = 25

// Pipeline implements scheduler.Pollers, scheduler.Recovery, and
// scheduler.ScorePending against one storage Manager.
type Pipeline struct {
	Storage     *sqlite.Manager
	Dedup       ingest.Dedup
	Provider    llm.Provider
	HTTPClient  *http.Client
	Logger      arbor.ILogger
	JDConfig    jdresolver.Config
	ScoringCfg  scoring.Config
	IMAPConfig  common.IMAPPollerConfig
	RSSConfig   common.RSSPollerConfig
	Concurrency int
}

var _ scheduler.Pollers = (*Pipeline)(nil)
var _ scheduler.Recovery = (*Pipeline)(nil)
var _ scheduler.ScorePending = (*Pipeline)(nil)

func (p *Pipeline) ingestDeps() ingest.Deps {
	return ingest.Deps{
		Store:       p.Storage.Jobs,
		Dedup:       p.Dedup,
		Provider:    p.Provider,
		HTTPClient:  p.HTTPClient,
		Logger:      p.Logger,
		JDConfig:    p.JDConfig,
		Scoring:     p.ScoringCfg,
		Concurrency: p.Concurrency,
	}
}

// PollGmail fetches unread mail, runs each message's extracted URLs through
// ingestion, and marks the message read only after ingestion completes.
func (p *Pipeline) PollGmail(ctx context.Context) error {
	if !p.IMAPConfig.Enabled {
		return nil
	}

	emails, err := pollers.FetchUnreadEmails(p.IMAPConfig)
	if err != nil {
		return err
	}

	for _, email := range emails {
		urls := pollers.ExtractURLs(email.Body)
		if len(urls) == 0 {
			continue
		}

		ingest.Run(ctx, p.ingestDeps(), ingest.Request{
			RawURLs: urls,
			Email: jdresolver.EmailContext{
				Subject: email.Subject,
				From:    email.From,
				Text:    email.Body,
			},
			Channel:   "email",
			MessageID: common.NewID("imap"),
		})

		if err := pollers.MarkSeen(p.IMAPConfig, email.SeqNum); err != nil {
			p.Logger.Warn().Err(err).Uint32("seq_num", email.SeqNum).Msg("failed to mark email as read")
		}
	}
	return nil
}

// PollRSS fetches every configured feed and ingests the union of their item
// links as one batch.
func (p *Pipeline) PollRSS(ctx context.Context) error {
	if !p.RSSConfig.Enabled || len(p.RSSConfig.FeedURLs) == 0 {
		return nil
	}

	items := pollers.FetchFeedItems(ctx, p.HTTPClient, p.RSSConfig.FeedURLs)
	if len(items) == 0 {
		return nil
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.Link)
	}

	ingest.Run(ctx, p.ingestDeps(), ingest.Request{RawURLs: urls, Channel: "rss"})
	return nil
}

// Backfill retries the JD fetch for jobs that previously needed a manual JD,
// in case the source is reachable now; jobs that resolve to a usable JD flow
// straight into extract+score.
func (p *Pipeline) Backfill(ctx context.Context, budget scheduler.Budget) error {
	needsManual := models.SystemStatusNeedsManualJD
	jobs, err := p.Storage.Jobs.ListBySystemStatus(ctx, needsManual, recoveryBatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if budget.Exceeded() {
			break
		}
		resolved := jdresolver.Resolve(ctx, p.HTTPClient, job.SourceDomain, job.JobURL, jdresolver.EmailContext{}, p.JDConfig)
		if resolved.JDTextClean == "" {
			continue
		}

		job.JDTextClean = resolved.JDTextClean
		job.JDSource = resolved.JDSource
		job.FetchStatus = resolved.FetchStatus
		job.FetchDebug = resolved.Debug
		job.UpdatedAt = common.NowMillis()

		if p.Provider != nil && len(resolved.JDTextClean) >= 180 {
			if err := p.rescoreJob(ctx, job, "recovery_backfill"); err != nil {
				p.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("backfill rescore failed")
			}
			continue
		}

		if err := p.Storage.Jobs.UpsertJob(ctx, job); err != nil {
			p.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("backfill upsert failed")
		}
	}
	return nil
}

// MissingFields re-runs extraction+scoring for jobs that have a usable JD
// but never got past the extract stage (e.g. AI was unavailable at ingest
// time).
func (p *Pipeline) MissingFields(ctx context.Context, budget scheduler.Budget) error {
	jobs, err := p.Storage.Jobs.ListMissingExtractedFields(ctx, recoveryBatchSize)
	if err != nil {
		return err
	}
	return p.rescoreAll(ctx, budget, jobs, "recovery_missing_fields")
}

// Rescore re-runs scoring for jobs previously marked AI-unavailable, now
// that a provider is configured.
func (p *Pipeline) Rescore(ctx context.Context, budget scheduler.Budget) error {
	jobs, err := p.Storage.Jobs.ListBySystemStatus(ctx, models.SystemStatusAIUnavailable, recoveryBatchSize)
	if err != nil {
		return err
	}
	return p.rescoreAll(ctx, budget, jobs, "recovery_rescore")
}

// Run (scheduler.ScorePending) batch-rescores the oldest NEW/SCORED/LINK_ONLY
// jobs, the same candidate set /score-pending selects on demand.
func (p *Pipeline) Run(ctx context.Context, budget scheduler.Budget) error {
	statuses := []models.JobStatus{models.JobStatusNew, models.JobStatusScored, models.JobStatusLinkOnly}
	jobs, err := p.Storage.Jobs.ListByStatuses(ctx, statuses, recoveryBatchSize)
	if err != nil {
		return err
	}
	return p.rescoreAll(ctx, budget, jobs, "score_pending")
}

func (p *Pipeline) rescoreAll(ctx context.Context, budget scheduler.Budget, jobs []*models.Job, source string) error {
	for _, job := range jobs {
		if budget.Exceeded() {
			break
		}
		if err := p.rescoreJob(ctx, job, source); err != nil {
			p.Logger.Warn().Err(err).Str("job_key", job.JobKey).Str("source", source).Msg("rescore failed")
		}
	}
	return nil
}

func (p *Pipeline) rescoreJob(ctx context.Context, job *models.Job, source string) error {
	targets, err := p.Storage.Jobs.ListTargets(ctx)
	if err != nil {
		return err
	}

	result := scoring.Run(ctx, p.Provider, scoring.Input{
		Job: job, Targets: targets, AIAvailable: p.Provider != nil, Source: source,
	}, p.ScoringCfg)

	if err := p.Storage.Jobs.UpsertJob(ctx, job); err != nil {
		return err
	}
	if err := p.Storage.ScoringRuns.Insert(ctx, result.ScoringRun); err != nil {
		p.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("failed to record scoring run telemetry")
	}

	if profile, perr := p.Storage.Jobs.PrimaryResumeProfile(ctx); perr == nil {
		ex := extractor.Extracted{
			MustKeywords: job.MustKeywords, NiceKeywords: job.NiceKeywords,
			RejectKeywords: job.RejectKeywords, Skills: job.Skills,
		}
		rows := evidence.BuildRows(job.JobKey, ex, job.JDTextClean, profile)
		if err := p.Storage.Jobs.UpsertEvidence(ctx, rows); err != nil {
			p.Logger.Warn().Err(err).Str("job_key", job.JobKey).Msg("failed to upsert evidence rows")
		}
	}

	return nil
}
