package pollers

import "testing"

func TestExtractURLsDedupesAndPreservesOrder(t *testing.T) {
	text := `Check out https://www.linkedin.com/jobs/view/123/ and also
	https://boards.greenhouse.io/acme/jobs/456 (same link again: https://www.linkedin.com/jobs/view/123/)`

	urls := ExtractURLs(text)
	if len(urls) != 2 {
		t.Fatalf("expected 2 unique urls, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://www.linkedin.com/jobs/view/123/" {
		t.Fatalf("expected first url preserved in order, got %s", urls[0])
	}
}

func TestExtractURLsReturnsNilWhenNoneFound(t *testing.T) {
	if urls := ExtractURLs("no links here"); urls != nil {
		t.Fatalf("expected nil, got %v", urls)
	}
}
