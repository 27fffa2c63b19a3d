package models

// RubricProfile selects the scoring template used by the Application Pack Manager.
// See DESIGN.md "target_rubric / pm_rubric duality" for why both names survive.
type RubricProfile string

const (
	RubricAuto           RubricProfile = "auto"
	RubricPMV1           RubricProfile = "pm_v1"
	RubricTargetGenericV1 RubricProfile = "target_generic_v1"
)

// Target is a user-defined profile of desired roles, seniority, and keywords.
// Immutable except by explicit operator upsert.
type Target struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	PrimaryRole    string        `json:"primary_role"`
	SeniorityPref  string        `json:"seniority_pref,omitempty"`
	LocationPref   string        `json:"location_pref,omitempty"`
	MustKeywords   []string      `json:"must_keywords"`
	NiceKeywords   []string      `json:"nice_keywords"`
	RejectKeywords []string      `json:"reject_keywords"`
	RubricProfile  RubricProfile `json:"rubric_profile"`
	CreatedAt      int64         `json:"created_at"`
	UpdatedAt      int64         `json:"updated_at"`
}

// ResumeProfile holds a candidate's structured résumé content. One designated
// "primary" profile always exists.
type ResumeProfile struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	IsPrimary bool            `json:"is_primary"`
	Profile   ProfileJSON     `json:"profile_json"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

// ProfileJSON is the structured body of a resume profile.
type ProfileJSON struct {
	Basics     ProfileBasics     `json:"basics"`
	Summary    string            `json:"summary"`
	Experience []ProfileExperience `json:"experience"`
	Skills     []string          `json:"skills"`
}

type ProfileBasics struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

type ProfileExperience struct {
	Company  string   `json:"company"`
	Role     string   `json:"role"`
	Bullets  []string `json:"bullets"`
	StartDate string  `json:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty"`
}

// JobProfilePreference overrides which resume profile applies to a given job,
// resolved before falling back to the primary profile.
type JobProfilePreference struct {
	JobKey    string `json:"job_key"`
	ProfileID string `json:"profile_id"`
}
