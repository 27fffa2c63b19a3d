// Package pollers implements the default external-source adapters: an IMAP
// mailbox poll and an RSS feed poll, each extracting raw job-posting URLs and
// handing them to the ingestion orchestrator.
package pollers

import "regexp"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractURLs pulls every http(s) URL out of free text, in appearance order,
// deduped.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
