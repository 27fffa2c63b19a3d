package resumepack

import (
	"testing"

	"github.com/jobops/triage/internal/models"
)

func testProfile() models.ResumeProfile {
	return models.ResumeProfile{
		ID: "profile-1",
		Profile: models.ProfileJSON{
			Basics: models.ProfileBasics{
				Name:     "Jordan Rivera",
				Email:    "jordan@example.com",
				Location: "Remote",
			},
			Experience: []models.ProfileExperience{
				{Company: "Acme", Bullets: []string{"Shipped things."}},
			},
		},
	}
}

func TestBuildRRExportContractValidWhenComplete(t *testing.T) {
	job := &models.Job{JobKey: "job-1", RoleTitle: "Engineer", Company: "Acme", Skills: []string{"go"}}
	pack := models.PackContent{Summary: "Experienced engineer.", Bullets: []string{"Delivered X."}, CoverLetter: "Dear team,"}

	export := BuildRRExport(testProfile(), job, pack, 0)

	if !export.Metadata.ContractValid {
		t.Fatalf("expected contract to be valid, errors=%v", export.Metadata.ContractErrors)
	}
	if !export.Metadata.ImportReady {
		t.Fatalf("expected import ready, errors=%v", export.Metadata.ImportErrors)
	}
	if export.Metadata.ContractID != "jobops.rr_export.v1" {
		t.Fatalf("ContractID = %q, want jobops.rr_export.v1", export.Metadata.ContractID)
	}
	if export.Metadata.SchemaVersion != 1 {
		t.Fatalf("SchemaVersion = %d, want 1", export.Metadata.SchemaVersion)
	}
	if export.Metadata.Version != 1 {
		t.Fatalf("Version = %d, want 1 for first build", export.Metadata.Version)
	}
}

func TestBuildRRExportVersionIncrementsFromPrior(t *testing.T) {
	job := &models.Job{JobKey: "job-1"}
	export := BuildRRExport(testProfile(), job, models.PackContent{}, 3)

	if export.Metadata.Version != 4 {
		t.Fatalf("Version = %d, want 4", export.Metadata.Version)
	}
}

func TestBuildRRExportContractInvalidWithoutJobKey(t *testing.T) {
	job := &models.Job{}
	export := BuildRRExport(testProfile(), job, models.PackContent{Summary: "x"}, 0)

	if export.Metadata.ContractValid {
		t.Fatalf("expected contract invalid when job_key missing")
	}
	if export.Metadata.ImportReady {
		t.Fatalf("import_ready should be false when contract itself is invalid")
	}
}

func TestBuildRRExportImportNotReadyWithoutEmail(t *testing.T) {
	profile := testProfile()
	profile.Profile.Basics.Email = ""
	job := &models.Job{JobKey: "job-1"}
	pack := models.PackContent{Summary: "x", CoverLetter: "y"}

	export := BuildRRExport(profile, job, pack, 0)

	if !export.Metadata.ContractValid {
		t.Fatalf("expected contract still valid without email, errors=%v", export.Metadata.ContractErrors)
	}
	if export.Metadata.ImportReady {
		t.Fatalf("expected import not ready without email")
	}
}
