package sqlite

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/common"
)

// Manager is the storage gateway: one SQLite connection behind typed,
// per-entity accessors, plus a Capabilities snapshot so callers can
// feature-detect optional tables once at startup instead of per query.
type Manager struct {
	db           *DB
	Jobs         *JobStore
	Drafts       *DraftStore
	ScoringRuns  *ScoringRunStore
	Targets      *TargetStore
	Profiles     *ProfileStore
	Contacts     *ContactStore
	Capabilities Capabilities
	logger       arbor.ILogger
}

// NewManager opens the database, applies the schema, detects capabilities,
// and wires every entity accessor against the shared connection.
func NewManager(logger arbor.ILogger, config common.SQLiteConfig) (*Manager, error) {
	db, err := Open(logger, config)
	if err != nil {
		return nil, err
	}

	caps, err := db.DetectCapabilities()
	if err != nil {
		db.Close()
		return nil, err
	}

	m := &Manager{
		db:           db,
		Jobs:         NewJobStore(db, logger),
		Drafts:       NewDraftStore(db, logger),
		ScoringRuns:  NewScoringRunStore(db, logger),
		Targets:      NewTargetStore(db, logger),
		Profiles:     NewProfileStore(db, logger),
		Contacts:     NewContactStore(db, logger),
		Capabilities: caps,
		logger:       logger,
	}

	logger.Info().
		Bool("job_evidence", caps.JobEvidence).
		Bool("scoring_runs", caps.ScoringRuns).
		Bool("contacts", caps.Contacts).
		Msg("storage manager initialized")

	return m, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.db.Ping(ctx)
}
