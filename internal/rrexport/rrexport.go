// Package rrexport pushes an already-built external-résumé export payload
// (jobops.rr_export.v1) to the external résumé-tailoring system named in its
// renderer field. It never constructs that payload itself — resumepack.
// BuildRRExport owns the contract shape; this package is only the outbound
// adapter.
package rrexport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/models"
)

// Config tunes the outbound push to the external résumé system.
type Config struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Pusher sends a built RRExport payload to the external system and returns
// the reference id it assigns, for ResumeDraft.ExternalResumeRef.
type Pusher interface {
	Push(ctx context.Context, export models.RRExport) (ref string, err error)
}

// Default posts the export payload as JSON to Config.BaseURL.
type Default struct {
	Config Config
	Client *http.Client
}

func NewDefault(cfg Config) *Default {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 15 * time.Second
	}
	return &Default{Config: cfg, Client: client}
}

var _ Pusher = (*Default)(nil)

type pushResponse struct {
	ID string `json:"id"`
}

// Push is a no-op returning an empty ref when exporting is disabled or the
// payload failed contract/import-readiness validation (resumepack sets
// ContractValid/ImportReady on the export object before this is called).
func (d *Default) Push(ctx context.Context, export models.RRExport) (string, error) {
	if !d.Config.Enabled {
		return "", nil
	}
	if !export.Metadata.ContractValid || !export.Metadata.ImportReady {
		return "", apperr.New(apperr.KindInvalidInput, "rr_export payload failed contract/import-readiness validation")
	}
	if d.Config.BaseURL == "" {
		return "", apperr.New(apperr.KindInvalidInput, "rr_export base_url is not configured")
	}

	body, err := json.Marshal(export)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to marshal rr_export payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Config.BaseURL+"/api/resume/import", bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to build rr_export request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.Config.APIKey)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternalFailure, "rr_export push request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.New(apperr.KindExternalFailure, fmt.Sprintf("rr_export push returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed pushResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", apperr.Wrap(apperr.KindExternalFailure, "failed to decode rr_export push response", err)
	}
	return parsed.ID, nil
}
