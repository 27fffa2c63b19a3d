package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobops/triage/internal/common"
)

type fakePollers struct {
	gmailCalls int
	rssCalls   int
	gmailErr   error
}

func (f *fakePollers) PollGmail(ctx context.Context) error {
	f.gmailCalls++
	return f.gmailErr
}

func (f *fakePollers) PollRSS(ctx context.Context) error {
	f.rssCalls++
	return nil
}

type fakeRecovery struct {
	backfillCalls, missingCalls, rescoreCalls int
}

func (f *fakeRecovery) Backfill(ctx context.Context, b Budget) error {
	f.backfillCalls++
	return nil
}

func (f *fakeRecovery) MissingFields(ctx context.Context, b Budget) error {
	f.missingCalls++
	return nil
}

func (f *fakeRecovery) Rescore(ctx context.Context, b Budget) error {
	f.rescoreCalls++
	return nil
}

type fakeScorePending struct {
	calls int
}

func (f *fakeScorePending) Run(ctx context.Context, b Budget) error {
	f.calls++
	return nil
}

func TestRunCycleExecutesAllStagesInOrderWhenAIAvailable(t *testing.T) {
	pollers := &fakePollers{}
	recovery := &fakeRecovery{}
	score := &fakeScorePending{}

	s := New(Deps{
		Pollers:      pollers,
		Recovery:     recovery,
		ScorePending: score,
		AIAvailable:  true,
		Logger:       common.GetLogger(),
	}, common.SchedulerConfig{MaxMS: 45000})

	ran := s.RunCycle(context.Background())

	want := []string{"gmail_poll", "rss_poll", "recovery_backfill", "recovery_missing_fields", "recovery_rescore", "score_pending"}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i, name := range want {
		if ran[i] != name {
			t.Fatalf("ran[%d] = %q, want %q", i, ran[i], name)
		}
	}
	if pollers.gmailCalls != 1 || pollers.rssCalls != 1 {
		t.Fatalf("expected both pollers called once, got gmail=%d rss=%d", pollers.gmailCalls, pollers.rssCalls)
	}
	if recovery.backfillCalls != 1 || recovery.missingCalls != 1 || recovery.rescoreCalls != 1 {
		t.Fatalf("expected all recovery stages called once")
	}
	if score.calls != 1 {
		t.Fatalf("expected score_pending called once, got %d", score.calls)
	}
}

func TestRunCycleSkipsAIDependentStagesWhenAIUnavailable(t *testing.T) {
	pollers := &fakePollers{}
	recovery := &fakeRecovery{}
	score := &fakeScorePending{}

	s := New(Deps{
		Pollers:      pollers,
		Recovery:     recovery,
		ScorePending: score,
		AIAvailable:  false,
		Logger:       common.GetLogger(),
	}, common.SchedulerConfig{MaxMS: 45000})

	s.RunCycle(context.Background())

	if recovery.backfillCalls != 1 {
		t.Fatalf("expected recovery_backfill (not AI-dependent) to still run")
	}
	if recovery.missingCalls != 0 || recovery.rescoreCalls != 0 {
		t.Fatalf("expected AI-dependent recovery stages to be skipped")
	}
	if score.calls != 0 {
		t.Fatalf("expected score_pending to be skipped without AI binding")
	}
}

func TestRunCycleContinuesAfterStageError(t *testing.T) {
	pollers := &fakePollers{gmailErr: errors.New("imap unreachable")}
	recovery := &fakeRecovery{}
	score := &fakeScorePending{}

	s := New(Deps{
		Pollers:      pollers,
		Recovery:     recovery,
		ScorePending: score,
		AIAvailable:  true,
		Logger:       common.GetLogger(),
	}, common.SchedulerConfig{MaxMS: 45000})

	ran := s.RunCycle(context.Background())

	if len(ran) != 6 {
		t.Fatalf("expected all 6 stages to run despite gmail_poll error, got %v", ran)
	}
	if score.calls != 1 {
		t.Fatalf("expected score_pending to still run after an earlier stage's error")
	}
}

func TestBudgetExceededReportsPastDeadline(t *testing.T) {
	past := Budget{Deadline: time.Now().Add(-time.Second)}
	if !past.Exceeded() {
		t.Fatalf("expected a past deadline to report Exceeded")
	}

	future := Budget{Deadline: time.Now().Add(time.Hour)}
	if future.Exceeded() {
		t.Fatalf("expected a future deadline to not report Exceeded")
	}

	zero := Budget{}
	if zero.Exceeded() {
		t.Fatalf("expected a zero-value deadline to never be treated as exceeded")
	}
}

func TestSchedulerBudgetClampsToBounds(t *testing.T) {
	cfg := common.SchedulerConfig{MaxMS: 1}
	if got := cfg.Budget(); got != 5*time.Second {
		t.Fatalf("Budget() = %v, want 5s floor", got)
	}
	cfg = common.SchedulerConfig{MaxMS: 10_000_000}
	if got := cfg.Budget(); got != 840*time.Second {
		t.Fatalf("Budget() = %v, want 840s ceiling", got)
	}
}
