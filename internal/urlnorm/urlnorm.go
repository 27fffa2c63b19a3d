// Package urlnorm canonicalizes raw job-posting URLs pulled from email,
// RSS, webhooks, or manual submissions into a stable job_key, unwrapping
// tracking redirects and applying per-source-domain canonicalization rules.
package urlnorm

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jobops/triage/internal/apperr"
	"github.com/jobops/triage/internal/common"
	"github.com/jobops/triage/internal/models"
)

// Result is the outcome of Normalize.
type Result struct {
	Ignored      bool
	SourceDomain models.SourceDomain
	JobID        string
	JobURL       string
	JobKey       string
}

// trackingParams is the set of query keys checked, in order, when unwrapping
// a tracking-redirect URL.
var trackingParams = []string{
	"url", "u", "q", "redirect", "redirect_url", "redirectUrl",
	"target", "dest", "destination", "to", "r", "href", "next",
}

var (
	linkedInJobPath = regexp.MustCompile(`/jobs/view/(\d+)/?`)
	trailingDigits  = regexp.MustCompile(`-(\d+)$`)
)

// Normalize resolves a raw URL to a canonical job record key. It never
// returns an error for a recognized non-job URL (that is Ignored=true);
// it returns an apperr.KindInvalidInput error only when the URL fails to
// parse at all.
func Normalize(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, apperr.New(apperr.KindInvalidInput, "empty url")
	}

	unwrapped := unwrapTrackingRedirect(raw)
	parsed, err := url.Parse(unwrapped)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInvalidInput, "invalid url", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Result{}, apperr.New(apperr.KindInvalidInput, "url missing scheme or host")
	}

	host := strings.ToLower(parsed.Hostname())
	switch {
	case strings.Contains(host, "linkedin.com"):
		return normalizeLinkedIn(parsed), nil
	case strings.Contains(host, "iimjobs.com"):
		return normalizeIIMJobs(parsed), nil
	case strings.Contains(host, "naukri.com"):
		return normalizeNaukri(parsed), nil
	default:
		return normalizeOther(parsed), nil
	}
}

// unwrapTrackingRedirect follows the iimjobs postoffice "/CL0/<encoded>/"
// prefix or a tracking-param wrapper to the real destination URL, double
// decoding when the first pass still looks percent-encoded. Returns raw
// unchanged when no wrapper is recognized.
func unwrapTrackingRedirect(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if strings.Contains(parsed.Path, "/CL0/") {
		if target := extractIIMJobsPostoffice(parsed.Path); target != "" {
			return target
		}
	}

	q := parsed.Query()
	for _, key := range trackingParams {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if target := decodeIfURL(v); target != "" {
			return target
		}
	}
	return raw
}

func extractIIMJobsPostoffice(path string) string {
	idx := strings.Index(path, "/CL0/")
	if idx == -1 {
		return ""
	}
	rest := strings.TrimSuffix(path[idx+len("/CL0/"):], "/")
	return decodeIfURL(rest)
}

// decodeIfURL percent-decodes v (twice, if still percent-encoded after the
// first pass) and returns it only if the result looks like an http(s) URL.
func decodeIfURL(v string) string {
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		decoded = v
	}
	if strings.Contains(decoded, "%") {
		if twice, err := url.QueryUnescape(decoded); err == nil {
			decoded = twice
		}
	}
	if strings.HasPrefix(decoded, "http://") || strings.HasPrefix(decoded, "https://") {
		return decoded
	}
	return ""
}

func normalizeLinkedIn(u *url.URL) Result {
	id := ""
	if v := u.Query().Get("currentJobId"); v != "" && isNumeric(v) {
		id = v
	}
	if id == "" {
		if m := linkedInJobPath.FindStringSubmatch(u.Path); len(m) == 2 {
			id = m[1]
		}
	}
	if id == "" {
		return Result{Ignored: true, SourceDomain: models.SourceLinkedIn}
	}
	jobURL := "https://www.linkedin.com/jobs/view/" + id + "/"
	return Result{
		SourceDomain: models.SourceLinkedIn,
		JobID:        id,
		JobURL:       jobURL,
		JobKey:       deriveJobKey(models.SourceLinkedIn, id, jobURL),
	}
}

func normalizeIIMJobs(u *url.URL) Result {
	if !strings.Contains(u.Path, "/j/") {
		return Result{Ignored: true, SourceDomain: models.SourceIIMJobs}
	}
	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, ".html")

	id := ""
	if m := trailingDigits.FindStringSubmatch(path); len(m) == 2 {
		id = m[1]
	}
	jobURL := canonicalURL(u, path)
	if id == "" {
		return Result{SourceDomain: models.SourceIIMJobs, JobURL: jobURL, JobKey: deriveJobKeyFromURL(jobURL)}
	}
	return Result{
		SourceDomain: models.SourceIIMJobs,
		JobID:        id,
		JobURL:       jobURL,
		JobKey:       deriveJobKey(models.SourceIIMJobs, id, jobURL),
	}
}

func normalizeNaukri(u *url.URL) Result {
	if strings.Contains(u.Path, "/mnjuser/inbox") {
		return Result{Ignored: true, SourceDomain: models.SourceNaukri}
	}
	if !strings.Contains(u.Path, "/job-listings-") {
		return Result{Ignored: true, SourceDomain: models.SourceNaukri}
	}
	path := strings.TrimSuffix(u.Path, "/")

	id := ""
	if m := trailingDigits.FindStringSubmatch(path); len(m) == 2 {
		id = m[1]
	}
	jobURL := canonicalURL(u, path)
	if id == "" {
		return Result{SourceDomain: models.SourceNaukri, JobURL: jobURL, JobKey: deriveJobKeyFromURL(jobURL)}
	}
	return Result{
		SourceDomain: models.SourceNaukri,
		JobID:        id,
		JobURL:       jobURL,
		JobKey:       deriveJobKey(models.SourceNaukri, id, jobURL),
	}
}

func normalizeOther(u *url.URL) Result {
	path := strings.TrimSuffix(u.Path, "/")
	jobURL := canonicalURL(u, path)
	return Result{SourceDomain: models.SourceOther, JobURL: jobURL, JobKey: deriveJobKeyFromURL(jobURL)}
}

func canonicalURL(u *url.URL, path string) string {
	stripped := &url.URL{Scheme: "https", Host: strings.ToLower(u.Host), Path: path}
	return stripped.String()
}

func deriveJobKey(source models.SourceDomain, id, jobURL string) string {
	return common.SHA1Hex(string(source) + "|" + id)
}

func deriveJobKeyFromURL(jobURL string) string {
	return common.SHA1Hex("url|" + jobURL)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
