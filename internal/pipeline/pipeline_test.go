package pipeline

import (
	"testing"

	"seoscan/internal/browserworker"
)

func TestLinkAnalysisFromAnchors(t *testing.T) {
	anchors := []browserworker.AnchorInfo{
		{URL: "https://example.com/a?utm_source=x", UTMParams: map[string]string{"utm_source": "x"}, NearestHeading: "Heading"},
		{URL: "https://example.com/b", UTMParams: map[string]string{}},
		{URL: "https://external.com/c", UTMParams: map[string]string{}},
	}

	result := linkAnalysisFromAnchors(anchors, "https://example.com")

	if result.InternalLinks != 2 {
		t.Errorf("internalLinks = %d, want 2", result.InternalLinks)
	}
	if result.ExternalLinks != 1 {
		t.Errorf("externalLinks = %d, want 1", result.ExternalLinks)
	}
	if result.UTMSummary.TrackedLinks != 1 {
		t.Errorf("trackedLinks = %d, want 1", result.UTMSummary.TrackedLinks)
	}
	if result.UTMSummary.MissingUTM != 1 {
		t.Errorf("missingUtm = %d, want 1", result.UTMSummary.MissingUTM)
	}
	if len(result.DiscoveredURLs) != 2 {
		t.Errorf("discoveredUrls = %v, want 2 entries", result.DiscoveredURLs)
	}
}

func TestExcerpt_TruncatesLongContent(t *testing.T) {
	long := "<p>" + stringsRepeat("word ", 200) + "</p>"
	out := excerpt(long, "https://example.com")
	if len(out) == 0 {
		t.Fatal("expected non-empty excerpt")
	}
	if len([]rune(out)) > excerptMaxLen+1 {
		t.Errorf("excerpt not truncated: len=%d", len(out))
	}
}

func TestExcerpt_EmptyHTML(t *testing.T) {
	if out := excerpt("", "https://example.com"); out != "" {
		t.Errorf("expected empty excerpt for empty html, got %q", out)
	}
}

func stringsRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
