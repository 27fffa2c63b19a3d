package sqlite

// Capabilities records which optional tables/columns this database actually
// has, detected once per Manager construction by querying sqlite_master and
// PRAGMA table_info — never by catching a query error at call time (spec §9
// "Feature-detected schema").
type Capabilities struct {
	JobEvidence          bool
	JobProfilePreferences bool
	ResumeDraftVersions  bool
	ScoringRuns          bool
	Contacts             bool
	ContactTouchpoints   bool
	RubricProfileColumn  bool
	RejectKeywordsColumn bool
}

// DetectCapabilities queries sqlite_master for table presence and
// PRAGMA table_info for column presence, on the tables/columns that a
// pre-C9 schema (or a partially migrated one) might be missing.
func (d *DB) DetectCapabilities() (Capabilities, error) {
	var caps Capabilities

	tables := map[string]*bool{
		"job_evidence":             &caps.JobEvidence,
		"job_profile_preferences":  &caps.JobProfilePreferences,
		"resume_draft_versions":    &caps.ResumeDraftVersions,
		"scoring_runs":             &caps.ScoringRuns,
		"contacts":                 &caps.Contacts,
		"contact_touchpoints":      &caps.ContactTouchpoints,
	}
	for name, flag := range tables {
		exists, err := d.tableExists(name)
		if err != nil {
			return caps, err
		}
		*flag = exists
	}

	hasRubric, err := d.columnExists("targets", "rubric_profile")
	if err != nil {
		return caps, err
	}
	caps.RubricProfileColumn = hasRubric

	hasReject, err := d.columnExists("jobs", "reject_keywords_json")
	if err != nil {
		return caps, err
	}
	caps.RejectKeywordsColumn = hasReject

	return caps, nil
}

func (d *DB) tableExists(name string) (bool, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *DB) columnExists(table, column string) (bool, error) {
	rows, err := d.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
