package models

// ScoringRun is an append-only telemetry row for one scoring pipeline execution
// (spec §4.4, §3).
type ScoringRun struct {
	ID               string         `json:"id"`
	JobKey           string         `json:"job_key"`
	Source           string         `json:"source"` // "ingest" | "rescore" | "score_pending" | ...
	FinalStatus      JobStatus      `json:"final_status"`
	HeuristicPassed  bool           `json:"heuristic_passed"`
	HeuristicReasons []string       `json:"heuristic_reasons,omitempty"`
	StageMetrics     []StageMetric  `json:"stage_metrics"`
	AIModel          string         `json:"ai_model,omitempty"`
	AITokensIn       int            `json:"ai_tokens_in"`
	AITokensOut      int            `json:"ai_tokens_out"`
	AITokensTotal    int            `json:"ai_tokens_total"`
	AILatencyMS      int64          `json:"ai_latency_ms"`
	TotalLatencyMS   int64          `json:"total_latency_ms"`
	FinalScore       *int           `json:"final_score,omitempty"`
	RejectTriggered  bool           `json:"reject_triggered"`
	CreatedAt        int64          `json:"created_at"`
}

// StageMetric records one pipeline stage's latency and outcome.
type StageMetric struct {
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}
