// Package handlers implements the thin JSON-in/JSON-out HTTP handler layer:
// one method per endpoint, parsing its request, calling straight into the
// storage gateway and the domain packages, and writing the {ok,data} /
// {ok:false,error,detail} envelope spec §7 defines.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/evidence"
	"github.com/jobops/triage/internal/ingest"
	"github.com/jobops/triage/internal/jdresolver"
	"github.com/jobops/triage/internal/llm"
	"github.com/jobops/triage/internal/mediaextract"
	"github.com/jobops/triage/internal/pdfexport"
	"github.com/jobops/triage/internal/rrexport"
	"github.com/jobops/triage/internal/scoring"
	"github.com/jobops/triage/internal/storage/sqlite"
)

// Handlers bundles every collaborator the HTTP surface needs.
type Handlers struct {
	Storage       *sqlite.Manager
	Provider      llm.Provider
	HTTPClient    *http.Client
	Logger        arbor.ILogger
	Dedup         ingest.Dedup
	MediaExtract  mediaextract.Extractor
	PDFRenderer   pdfexport.Renderer
	RRExport      rrexport.Pusher
	Synonyms      evidence.SynonymMap
	PackConfig    common.PackConfig
	Webhooks      common.WebhooksConfig
	JDConfig      jdresolver.Config
	ScoringCfg    scoring.Config
	Concurrency   int
}

type envelope struct {
	OK     bool        `json:"ok"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), envelope{OK: false, Error: "request_failed", Detail: err.Error()})
}

// validate runs struct-tag validation on every decoded request DTO; a single
// package-level instance since validator.Validate caches struct reflection
// and is safe for concurrent use.
var validate = validator.New()

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "failed to decode request body", err)
	}
	return nil
}

// decodeAndValidate decodes the request body into v and runs its `validate:`
// struct tags, folding every failed field into one invalid-input error.
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "request failed validation: "+fieldErrors(err), err)
	}
	return nil
}

func fieldErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func (h *Handlers) ingestDeps() ingest.Deps {
	return ingest.Deps{
		Store:       h.Storage.Jobs,
		Dedup:       h.Dedup,
		Provider:    h.Provider,
		HTTPClient:  h.HTTPClient,
		Logger:      h.Logger,
		JDConfig:    h.JDConfig,
		Scoring:     h.ScoringCfg,
		Concurrency: h.Concurrency,
	}
}
