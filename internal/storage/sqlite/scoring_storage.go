package sqlite

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/models"
)

// ScoringRunStore is the append-only scoring_runs accessor (spec §4.4, §3
// telemetry on every scoring pipeline execution).
type ScoringRunStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewScoringRunStore(db *DB, logger arbor.ILogger) *ScoringRunStore {
	return &ScoringRunStore{db: db, logger: logger}
}

// Insert appends one scoring run. Returns apperr KindSchemaDisabled if the
// optional table is absent.
func (s *ScoringRunStore) Insert(ctx context.Context, run models.ScoringRun) error {
	exists, err := s.db.tableExists("scoring_runs")
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindSchemaDisabled, "scoring_runs table not present in this schema")
	}

	reasonsJSON, _ := json.Marshal(run.HeuristicReasons)
	metricsJSON, _ := json.Marshal(run.StageMetrics)

	return retryWithBackoff(ctx, s.logger, func() error {
		_, err := s.db.db.ExecContext(ctx, `
			INSERT INTO scoring_runs (
				id, job_key, source, final_status, heuristic_passed, heuristic_reasons_json,
				stage_metrics_json, ai_model, ai_tokens_in, ai_tokens_out, ai_tokens_total,
				ai_latency_ms, total_latency_ms, final_score, reject_triggered, created_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, run.JobKey, run.Source, string(run.FinalStatus), boolToInt(run.HeuristicPassed),
			string(reasonsJSON), string(metricsJSON), run.AIModel, run.AITokensIn, run.AITokensOut,
			run.AITokensTotal, run.AILatencyMS, run.TotalLatencyMS, run.FinalScore,
			boolToInt(run.RejectTriggered), run.CreatedAt)
		return err
	})
}

// ListForJob returns every scoring run recorded for a job, newest first.
func (s *ScoringRunStore) ListForJob(ctx context.Context, jobKey string) ([]models.ScoringRun, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, job_key, source, final_status, heuristic_passed, heuristic_reasons_json,
			stage_metrics_json, ai_model, ai_tokens_in, ai_tokens_out, ai_tokens_total,
			ai_latency_ms, total_latency_ms, final_score, reject_triggered, created_at
		FROM scoring_runs WHERE job_key = ? ORDER BY created_at DESC`, jobKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScoringRun
	for rows.Next() {
		var r models.ScoringRun
		var reasonsJSON, metricsJSON string
		var passed, rejected int
		if err := rows.Scan(&r.ID, &r.JobKey, &r.Source, &r.FinalStatus, &passed, &reasonsJSON, &metricsJSON,
			&r.AIModel, &r.AITokensIn, &r.AITokensOut, &r.AITokensTotal, &r.AILatencyMS, &r.TotalLatencyMS,
			&r.FinalScore, &rejected, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.HeuristicPassed = passed != 0
		r.RejectTriggered = rejected != 0
		_ = json.Unmarshal([]byte(reasonsJSON), &r.HeuristicReasons)
		_ = json.Unmarshal([]byte(metricsJSON), &r.StageMetrics)
		out = append(out, r)
	}
	return out, rows.Err()
}
