package resumepack

import (
	"strings"

	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/models"
)

const (
	rrContractID    = "jobops.rr_export.v1"
	rrSchemaVersion = 1
)

// BuildRRExport assembles the external-résumé contract payload for a draft
// and validates both the contract shape and import readiness, recording any
// failures in the metadata rather than failing generation.
func BuildRRExport(profile models.ResumeProfile, job *models.Job, pack models.PackContent, priorVersion int) models.RRExport {
	basics := models.RRBasics{
		Name:     profile.Profile.Basics.Name,
		Email:    profile.Profile.Basics.Email,
		Phone:    profile.Profile.Basics.Phone,
		Location: profile.Profile.Basics.Location,
		Summary:  pack.Summary,
	}

	highlights := make([]models.RRHighlight, 0, len(pack.Bullets))
	for _, b := range pack.Bullets {
		highlights = append(highlights, models.RRHighlight{Text: b})
	}

	sections := models.RRSections{
		Experience: profile.Profile.Experience,
		Skills:     job.Skills,
		Highlights: highlights,
	}

	jobContext := models.RRJobContext{
		JobKey:    job.JobKey,
		RoleTitle: job.RoleTitle,
		Company:   job.Company,
		JobURL:    job.JobURL,
	}

	export := models.RRExport{
		Basics:     basics,
		Sections:   sections,
		JobContext: jobContext,
	}

	contractErrors := validateContract(export)
	importErrors := validateImportReady(export, pack)

	export.Metadata = models.RRExportMetadata{
		Source:         "jobops-triage",
		ContractID:     rrContractID,
		SchemaVersion:  rrSchemaVersion,
		Version:        priorVersion + 1,
		ExportedAt:     common.NowMillis(),
		Renderer:       "resumepack.BuildRRExport",
		ContractValid:  len(contractErrors) == 0,
		ImportReady:    len(contractErrors) == 0 && len(importErrors) == 0,
		ContractErrors: contractErrors,
		ImportErrors:   importErrors,
	}

	return export
}

// validateContract checks the minimal shape the external contract requires:
// a job_context.job_key, a basics.name, and a basics.summary.
func validateContract(export models.RRExport) []string {
	var errs []string
	if export.JobContext.JobKey == "" {
		errs = append(errs, "job_context.job_key missing")
	}
	if strings.TrimSpace(export.Basics.Name) == "" {
		errs = append(errs, "basics.name missing")
	}
	if strings.TrimSpace(export.Basics.Summary) == "" {
		errs = append(errs, "basics.summary missing")
	}
	return errs
}

// validateImportReady applies stricter checks than the contract shape alone:
// the content must actually be usable by a downstream importer.
func validateImportReady(export models.RRExport, pack models.PackContent) []string {
	var errs []string
	if len(export.Sections.Highlights) == 0 {
		errs = append(errs, "sections.highlights empty")
	}
	if export.Basics.Email == "" {
		errs = append(errs, "basics.email missing")
	}
	if strings.TrimSpace(pack.CoverLetter) == "" {
		errs = append(errs, "cover_letter missing")
	}
	return errs
}
