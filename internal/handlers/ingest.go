package handlers

import (
	"net/http"

	"github.com/jobops/triage/internal/ingest"
	"github.com/jobops/triage/internal/jdresolver"
)

type ingestRequest struct {
	RawURLs      []string `json:"raw_urls" validate:"required,min=1,dive,required"`
	EmailText    string   `json:"email_text,omitempty"`
	EmailHTML    string   `json:"email_html,omitempty"`
	EmailSubject string   `json:"email_subject,omitempty"`
	EmailFrom    string   `json:"email_from,omitempty"`
}

// Ingest handles POST /ingest: body {raw_urls:[string], email_text?, email_html?,
// email_subject?, email_from?} -> 200 {ok,data:IngestResult}.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	result := ingest.Run(r.Context(), h.ingestDeps(), ingest.Request{
		RawURLs: req.RawURLs,
		Email: jdresolver.EmailContext{
			HTML: req.EmailHTML, Text: req.EmailText,
			Subject: req.EmailSubject, From: req.EmailFrom,
		},
		Channel: "http",
	})
	writeOK(w, result)
}
