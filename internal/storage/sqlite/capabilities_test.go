package sqlite

import "testing"

func TestDetectCapabilitiesOnFreshSchema(t *testing.T) {
	db := openTestDB(t)

	caps, err := db.DetectCapabilities()
	if err != nil {
		t.Fatalf("DetectCapabilities: %v", err)
	}

	if !caps.JobEvidence || !caps.ScoringRuns || !caps.Contacts || !caps.ContactTouchpoints ||
		!caps.JobProfilePreferences || !caps.ResumeDraftVersions {
		t.Fatalf("expected every optional table to be present on a fresh schema: %+v", caps)
	}
	if !caps.RubricProfileColumn || !caps.RejectKeywordsColumn {
		t.Fatalf("expected optional columns to be present on a fresh schema: %+v", caps)
	}
}

func TestDetectCapabilitiesReflectsDroppedTable(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.db.Exec(`DROP TABLE scoring_runs`); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	caps, err := db.DetectCapabilities()
	if err != nil {
		t.Fatalf("DetectCapabilities: %v", err)
	}
	if caps.ScoringRuns {
		t.Fatalf("expected ScoringRuns to be false after DROP TABLE")
	}
	if !caps.JobEvidence {
		t.Fatalf("expected unrelated tables to remain detected as present")
	}
}
