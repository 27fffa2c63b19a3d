// -----------------------------------------------------------------------
// Last Modified: Thursday, 9th October 2025 8:53:55 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures every HTTP route the external interface exposes
// (spec §6). Job-scoped routes are dispatched by path suffix rather than a
// pattern-matching mux, matching the teacher's own handleJobRoutes idiom.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ingest", s.handleIngestRoute)
	mux.HandleFunc("/ingest/whatsapp/vonage", s.handlers.VonageWebhook)
	mux.HandleFunc("/score-pending", s.handlers.ScorePending)
	mux.HandleFunc("/jobs/evidence/rebuild-archived", s.handlers.RebuildArchived)
	mux.HandleFunc("/jobs/evidence/gap-report", s.handlers.GapReport)
	mux.HandleFunc("/jobs/", s.handleJobRoutes)

	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/shutdown", s.ShutdownHandler)

	return mux
}

func (s *Server) handleIngestRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handlers.Ingest(w, r)
}

// handleJobRoutes dispatches every /jobs/{job_key}/... route by stripping the
// prefix and matching the remaining path suffix, same style as the job
// routes this package's teacher version used for /api/jobs/{id}/... .
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	const prefix = "/jobs/"
	path := r.URL.Path
	if len(path) <= len(prefix) {
		http.NotFound(w, r)
		return
	}
	rest := path[len(prefix):]

	switch {
	case strings.HasSuffix(rest, "/rescore") && r.Method == http.MethodPost:
		s.handlers.Rescore(w, r, strings.TrimSuffix(rest, "/rescore"))
	case strings.HasSuffix(rest, "/manual-jd") && r.Method == http.MethodPost:
		s.handlers.ManualJD(w, r, strings.TrimSuffix(rest, "/manual-jd"))
	case strings.HasSuffix(rest, "/auto-pilot") && r.Method == http.MethodPost:
		s.handlers.AutoPilot(w, r, strings.TrimSuffix(rest, "/auto-pilot"))
	case strings.HasSuffix(rest, "/application-pack/review") && r.Method == http.MethodPost:
		s.handlers.ApplicationPackReview(w, r, strings.TrimSuffix(rest, "/application-pack/review"))
	case strings.HasSuffix(rest, "/application-pack/approve") && r.Method == http.MethodPost:
		s.handlers.ApplicationPackApprove(w, r, strings.TrimSuffix(rest, "/application-pack/approve"))
	case strings.HasSuffix(rest, "/application-pack/revert") && r.Method == http.MethodPost:
		s.handlers.ApplicationPackRevert(w, r, strings.TrimSuffix(rest, "/application-pack/revert"))
	default:
		http.NotFound(w, r)
	}
}
