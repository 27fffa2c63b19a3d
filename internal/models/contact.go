package models

// TouchpointChannel is the outreach channel used for a contact touchpoint.
type TouchpointChannel string

const (
	ChannelLinkedIn TouchpointChannel = "LINKEDIN"
	ChannelEmail    TouchpointChannel = "EMAIL"
	ChannelOther    TouchpointChannel = "OTHER"
)

// TouchpointStatus tracks outreach progress.
type TouchpointStatus string

const (
	TouchpointDraft   TouchpointStatus = "DRAFT"
	TouchpointSent    TouchpointStatus = "SENT"
	TouchpointReplied TouchpointStatus = "REPLIED"
)

// Contact is a person surfaced as a potential_contact by the scoring pipeline
// (spec §4.4) or added manually for outreach.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Company   string `json:"company,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Touchpoint records one outreach interaction on one job, unique per
// (contact_id, job_key, channel).
type Touchpoint struct {
	ID        string            `json:"id"`
	ContactID string            `json:"contact_id"`
	JobKey    string            `json:"job_key"`
	Channel   TouchpointChannel `json:"channel"`
	Status    TouchpointStatus  `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}
