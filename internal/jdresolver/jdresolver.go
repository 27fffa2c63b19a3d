// Package jdresolver fetches and cleans a job description for a canonical
// job URL, falling back to inbound email content when the fetch is blocked,
// low quality, or skipped entirely (LinkedIn's strict policy).
package jdresolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/jobops/triage/internal/models"
)

// maxFetchBody bounds how much of a job page body we read before giving up
// on finding the JD window in it.
const maxFetchBody = 2 << 20 // 2MiB

// Config tunes the HTTP fetch used by Resolve.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// EmailContext is the inbound-email material used as a fallback source when
// the live fetch is unusable.
type EmailContext struct {
	HTML    string
	Text    string
	Subject string
	From    string
}

// Resolved is the outcome of resolving a job's description.
type Resolved struct {
	JDTextClean string
	JDSource    models.JDSource
	FetchStatus models.FetchStatus
	Debug       models.FetchDebug
}

var startAnchors = []string{
	"description:", "role overview", "job description", "key responsibilities", "responsibilities:",
}

var endAnchors = []string{
	"\napply", "\nsave", "similar jobs", "report this job", "copyright", "unsubscribe",
}

// Policy is a per-source-domain gate consulted by the ingestion orchestrator
// to decide whether a job needs manual JD entry.
type Policy struct {
	MinChars               int
	RequireFetchedHighConf bool
	AllowLowConfEmail      bool
}

var policyTable = map[string]Policy{
	"linkedin":               {MinChars: 280, RequireFetchedHighConf: true, AllowLowConfEmail: false},
	"iimjobs":                {MinChars: 220, RequireFetchedHighConf: false, AllowLowConfEmail: false},
	"naukri":                 {MinChars: 220, RequireFetchedHighConf: false, AllowLowConfEmail: false},
	"whatsapp.vonage.local":  {MinChars: 120, RequireFetchedHighConf: false, AllowLowConfEmail: true},
	"other":                  {MinChars: 220, RequireFetchedHighConf: false, AllowLowConfEmail: false},
}

// PolicyFor returns the per-source policy, defaulting to "other" for any
// unrecognized key.
func PolicyFor(sourceKey string) Policy {
	if p, ok := policyTable[sourceKey]; ok {
		return p
	}
	return policyTable["other"]
}

// Resolve fetches jobURL (unless source is LinkedIn, which is fetched only
// via the email fallback per policy strict_linkedin), cleans the resulting
// HTML to a JD window, and falls back to email content when the fetch is
// blocked, failed, or low quality.
func Resolve(ctx context.Context, client *http.Client, source models.SourceDomain, jobURL string, email EmailContext, cfg Config) Resolved {
	debug := models.FetchDebug{FetchTimeoutMS: int(cfg.Timeout.Milliseconds())}

	var priorStatus models.FetchStatus
	if source == models.SourceLinkedIn {
		priorStatus = models.FetchStatusBlocked
		debug.PolicyLabel = "strict_linkedin"
	} else {
		body, httpStatus, err := fetchURL(ctx, client, jobURL, cfg)
		switch {
		case err != nil:
			priorStatus = models.FetchStatusFailed
			debug.FallbackReason = err.Error()
		case httpStatus == http.StatusUnauthorized, httpStatus == http.StatusForbidden, httpStatus == http.StatusTooManyRequests:
			priorStatus = models.FetchStatusBlocked
			debug.PolicyLabel = fmt.Sprintf("http_%d", httpStatus)
		case httpStatus < 200 || httpStatus >= 300:
			priorStatus = models.FetchStatusFailed
			debug.PolicyLabel = fmt.Sprintf("http_%d", httpStatus)
		default:
			text := htmlToPlainText(body)
			windowed := extractJDWindow(text)
			if isLowQuality(windowed, source == models.SourceLinkedIn) {
				priorStatus = models.FetchStatusLowQuality
			} else if len(windowed) >= 260 {
				debug.Confidence = jdConfidence(windowed)
				return Resolved{
					JDTextClean: windowed,
					JDSource:    models.JDSourceFetched,
					FetchStatus: models.FetchStatusOK,
					Debug:       debug,
				}
			} else {
				priorStatus = models.FetchStatusLowQuality
			}
		}
	}

	debug.PriorStatus = string(priorStatus)

	emailText := htmlToPlainText(email.HTML)
	combined := strings.Join([]string{email.Subject, email.From, email.Text, emailText}, "\n")
	windowed := extractJDWindow(combined)
	if len(windowed) >= 180 {
		return Resolved{
			JDTextClean: windowed,
			JDSource:    models.JDSourceEmail,
			FetchStatus: models.FetchStatusOK,
			Debug:       debug,
		}
	}

	return Resolved{
		JDTextClean: "",
		JDSource:    models.JDSourceNone,
		FetchStatus: priorStatus,
		Debug:       debug,
	}
}

func fetchURL(ctx context.Context, client *http.Client, rawURL string, cfg Config) (string, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, boundTimeout(cfg.Timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; jobops-triage/1.0)"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(data), resp.StatusCode, nil
}

func boundTimeout(d time.Duration) time.Duration {
	if d < 1500*time.Millisecond {
		return 1500 * time.Millisecond
	}
	if d > 15*time.Second {
		return 15 * time.Second
	}
	return d
}

var (
	mdLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdPunctRe   = regexp.MustCompile("[*_#>`~]+")
	mdBulletRe  = regexp.MustCompile(`(?m)^[ \t]*[-+*]\s+`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
)

// htmlToPlainText converts HTML to a block-newline-separated plain text
// rendering: a goquery pass strips non-content elements from the DOM first
// (goquery's selector engine finds them more reliably than the markdown
// converter's own tag-name filter, particularly for nested script/style
// blocks), then the markdown converter walks what's left, and a final regexp
// pass strips residual markdown syntax.
func htmlToPlainText(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}
	cleanedHTML := stripNonContentTags(rawHTML)

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleanedHTML)
	if err != nil {
		markdown = cleanedHTML
	}
	return cleanMarkdownArtifacts(markdown)
}

// stripNonContentTags removes script/style/nav/footer/aside/noscript
// elements from the raw HTML via goquery before the markdown conversion
// step; falls back to the unmodified HTML if the document fails to parse.
func stripNonContentTags(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	doc.Find("script, style, nav, footer, aside, noscript").Remove()
	cleaned, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return cleaned
}

func cleanMarkdownArtifacts(s string) string {
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = mdBulletRe.ReplaceAllString(s, "")
	s = mdPunctRe.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// extractJDWindow locates the earliest-occurring start anchor and slices
// from there, then truncates before the earliest end anchor found after it,
// collapsing all whitespace to single spaces.
func extractJDWindow(text string) string {
	lower := strings.ToLower(text)

	startIdx := -1
	for _, anchor := range startAnchors {
		if idx := strings.Index(lower, anchor); idx != -1 && (startIdx == -1 || idx < startIdx) {
			startIdx = idx
		}
	}
	sliced := text
	if startIdx != -1 {
		sliced = text[startIdx:]
	}

	lowerSliced := strings.ToLower(sliced)
	endIdx := -1
	for _, anchor := range endAnchors {
		if idx := strings.Index(lowerSliced, anchor); idx != -1 && (endIdx == -1 || idx < endIdx) {
			endIdx = idx
		}
	}
	if endIdx != -1 {
		sliced = sliced[:endIdx]
	}

	return strings.Join(strings.Fields(sliced), " ")
}

// isLowQuality implements the spec's length/boilerplate heuristic; the
// cookie/privacy mention threshold tightens on the LinkedIn logged-out shell
// where those mentions dominate a blocked page far faster than on other
// sources.
func isLowQuality(text string, isLinkedInSource bool) bool {
	if len(text) < 220 {
		return true
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "linkedin respects your privacy") {
		return true
	}
	if strings.Contains(lower, "enable javascript") {
		return true
	}
	mentions := strings.Count(lower, "cookie") + strings.Count(lower, "privacy")
	threshold := 6
	if isLinkedInSource {
		threshold = 3
	}
	return mentions >= threshold
}

// jdConfidence scores a cleaned JD by length tier plus presence of
// structural section anchors.
func jdConfidence(text string) string {
	lower := strings.ToLower(text)
	score := 0
	switch {
	case len(text) >= 1200:
		score += 3
	case len(text) >= 600:
		score += 2
	default:
		score += 1
	}
	if strings.Contains(lower, "responsibilit") {
		score++
	}
	if strings.Contains(lower, "qualification") || strings.Contains(lower, "requirement") {
		score++
	}
	if strings.Contains(lower, "nice to have") || strings.Contains(lower, "nice-to-have") {
		score++
	}
	switch {
	case score >= 5:
		return "high"
	case score >= 3:
		return "medium"
	default:
		return "low"
	}
}
