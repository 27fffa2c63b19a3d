// Package scheduler drives the single budgeted cron entry that runs the
// poll/recovery/score pipeline: gmail_poll, rss_poll, recovery_backfill,
// recovery_missing_fields, recovery_rescore, score_pending, in that fixed
// order, cooperatively bounded by a wall-clock budget.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/common"
)

// Budget carries the cooperative deadline a cycle's stages must respect; it
// is threaded down the call tree rather than kept as a process-wide flag.
type Budget struct {
	Deadline time.Time
}

// Exceeded reports whether the budget's deadline has already passed.
func (b Budget) Exceeded() bool {
	return !b.Deadline.IsZero() && time.Now().After(b.Deadline)
}

// Stage is one named step of a cycle. Run receives the cycle's context,
// already carrying the budget's deadline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, budget Budget) error
}

// Pollers supplies the two ingestion-triggering stages (spec §4.8); both are
// external collaborators with a default adapter (see internal/pollers).
type Pollers interface {
	PollGmail(ctx context.Context) error
	PollRSS(ctx context.Context) error
}

// Recovery supplies the three recovery stages: re-attempt JD fetch for jobs
// still missing usable text, backfill jobs missing extracted fields, and
// rescore jobs whose scoring run predates the latest target/profile change.
type Recovery interface {
	Backfill(ctx context.Context, budget Budget) error
	MissingFields(ctx context.Context, budget Budget) error
	Rescore(ctx context.Context, budget Budget) error
}

// ScorePending batch-rescores the oldest pending jobs, mirroring the
// POST /score-pending handler's selection (spec §6).
type ScorePending interface {
	Run(ctx context.Context, budget Budget) error
}

// Deps bundles the scheduler's collaborators. AIAvailable controls whether
// AI-dependent stages (recovery_missing_fields, recovery_rescore,
// score_pending) run at all; when false they are skipped with a warning
// rather than attempted and failed (spec §4.8 "Missing AI binding").
type Deps struct {
	Pollers      Pollers
	Recovery     Recovery
	ScorePending ScorePending
	AIAvailable  bool
	Logger       arbor.ILogger
}

// aiDependentStages names the stages Deps.AIAvailable gates.
var aiDependentStages = map[string]bool{
	"recovery_missing_fields": true,
	"recovery_rescore":        true,
	"score_pending":           true,
}

// Scheduler wraps robfig/cron to fire one RunCycle invocation per tick,
// never overlapping (spec §5: "at most one cron invocation at a time").
type Scheduler struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	deps    Deps
	config  common.SchedulerConfig
	mu      sync.Mutex
	running bool
}

// New constructs a Scheduler; call Start to register and begin the cron loop.
func New(deps Deps, config common.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: deps.Logger,
		deps:   deps,
		config: config,
	}
}

// Start registers the single cron entry and begins the loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	expr := s.config.CronExpr
	if expr == "" {
		expr = "*/1 * * * *"
	}

	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return fmt.Errorf("register cron entry: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("cron_expr", expr).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) tick() {
	s.RunCycle(context.Background())
}

// RunCycle executes one full pass over the fixed stage order within the
// configured wall-clock budget. Each stage catches and logs its own error
// without aborting later stages. Returns the stages actually executed, for
// tests.
func (s *Scheduler) RunCycle(ctx context.Context) []string {
	budget := Budget{Deadline: time.Now().Add(s.config.Budget())}
	stages := s.stages()

	var ran []string
	budgetStopLogged := false
	for _, stage := range stages {
		if budget.Exceeded() {
			if !budgetStopLogged {
				s.logger.Warn().Str("event", "SCHEDULE_BUDGET_STOP").Str("next_stage", stage.Name).Msg("cron budget exceeded, stopping cycle")
				budgetStopLogged = true
			}
			break
		}

		if aiDependentStages[stage.Name] && !s.deps.AIAvailable {
			s.logger.Warn().Str("stage", stage.Name).Msg("AI binding unavailable, skipping AI-dependent stage")
			continue
		}

		stageCtx, cancel := context.WithDeadline(ctx, budget.Deadline)
		err := stage.Run(stageCtx, budget)
		cancel()
		ran = append(ran, stage.Name)

		if err != nil {
			s.logger.Error().Str("stage", stage.Name).Err(err).Msg("scheduler stage failed")
		}
	}
	return ran
}

func (s *Scheduler) stages() []Stage {
	return []Stage{
		{Name: "gmail_poll", Run: func(ctx context.Context, _ Budget) error {
			if s.deps.Pollers == nil {
				return nil
			}
			return s.deps.Pollers.PollGmail(ctx)
		}},
		{Name: "rss_poll", Run: func(ctx context.Context, _ Budget) error {
			if s.deps.Pollers == nil {
				return nil
			}
			return s.deps.Pollers.PollRSS(ctx)
		}},
		{Name: "recovery_backfill", Run: func(ctx context.Context, b Budget) error {
			if s.deps.Recovery == nil {
				return nil
			}
			return s.deps.Recovery.Backfill(ctx, b)
		}},
		{Name: "recovery_missing_fields", Run: func(ctx context.Context, b Budget) error {
			if s.deps.Recovery == nil {
				return nil
			}
			return s.deps.Recovery.MissingFields(ctx, b)
		}},
		{Name: "recovery_rescore", Run: func(ctx context.Context, b Budget) error {
			if s.deps.Recovery == nil {
				return nil
			}
			return s.deps.Recovery.Rescore(ctx, b)
		}},
		{Name: "score_pending", Run: func(ctx context.Context, b Budget) error {
			if s.deps.ScorePending == nil {
				return nil
			}
			return s.deps.ScorePending.Run(ctx, b)
		}},
	}
}
