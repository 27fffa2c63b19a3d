// Package mediaextract turns an inbound webhook's media reference into
// ingestible text. The default Extractor treats the reference as already a
// decoded string (WhatsApp/Vonage payloads arrive as plain text plus a media
// URL in this system); a richer OCR/transcription extractor is an external
// collaborator by design.
package mediaextract

import "github.com/jobops/triage/internal/apperr"

// Reference is one inbound media/text item from a webhook payload.
type Reference struct {
	ID   string
	URL  string
	Text string
}

// Extractor turns a Reference into ingestible text.
type Extractor interface {
	Extract(ref Reference) (string, error)
}

// Default is the no-OCR extractor: it returns the reference's own text
// field, or its URL when no text is present (treated as a raw job link). The
// id is not resolved: a reference carrying only an id yields an empty string.
type Default struct{}

func (Default) Extract(ref Reference) (string, error) {
	if ref.ID == "" && ref.URL == "" && ref.Text == "" {
		return "", apperr.New(apperr.KindInvalidInput, "media reference has no id, url, or text")
	}
	if ref.Text != "" {
		return ref.Text, nil
	}
	return ref.URL, nil
}
