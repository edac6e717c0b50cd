package analyzer

import (
	"testing"

	"seoscan/internal/model"
)

const s1HTML = `<html><head><title>Sample Page</title><meta name="description" content="A demo description"/><link rel="canonical" href="https://example.com/page"/><script type="application/ld+json">{"@context":"https://schema.org","@type":"WebSite","name":"Demo","url":"https://example.com"}</script><script>mixpanel.track("Clicked");gtag('config','UA-123')</script></head><body><h1>Heading</h1><a class="cta desktop-link" data-viewport="desktop" href="/internal?utm_source=newsletter&utm_campaign=test">Internal tracked</a><a class="cta mobile-only" data-viewport="mobile" href="/internal-two">Internal missing</a><a href="https://external.com/page">External</a></body></html>`

func TestAnalyzeSeo_S1(t *testing.T) {
	seo := AnalyzeSeo(s1HTML)

	if seo.Title != "Sample Page" {
		t.Errorf("title = %q, want Sample Page", seo.Title)
	}
	if seo.MetaDescription != "A demo description" {
		t.Errorf("metaDescription = %q", seo.MetaDescription)
	}
	if seo.Canonical != "https://example.com/page" {
		t.Errorf("canonical = %q", seo.Canonical)
	}
	if seo.H1 != "Heading" {
		t.Errorf("h1 = %q", seo.H1)
	}
}

func TestAnalyzeLinks_S1(t *testing.T) {
	links := AnalyzeLinks(s1HTML, "https://example.com")

	if links.InternalLinks != 2 {
		t.Errorf("internalLinks = %d, want 2", links.InternalLinks)
	}
	if links.ExternalLinks != 1 {
		t.Errorf("externalLinks = %d, want 1", links.ExternalLinks)
	}
	if links.UTMSummary.TrackedLinks != 1 {
		t.Errorf("trackedLinks = %d, want 1", links.UTMSummary.TrackedLinks)
	}
	if links.UTMSummary.MissingUTM != 1 {
		t.Errorf("missingUtm = %d, want 1", links.UTMSummary.MissingUTM)
	}
	if len(links.UTMSummary.Examples) == 0 {
		t.Fatal("expected at least one example")
	}
	first := links.UTMSummary.Examples[0]
	if first.Heading == nil || first.Heading.Tag != "h1" || first.Heading.Text != "Heading" {
		t.Errorf("first example heading = %+v, want h1/Heading", first.Heading)
	}
	if first.DeviceVariant != "desktop" {
		t.Errorf("first example deviceVariant = %q, want desktop", first.DeviceVariant)
	}
}

func TestAnalyzeTracking_S1(t *testing.T) {
	events := AnalyzeTracking(s1HTML)

	found := false
	for _, ev := range events {
		if ev.Platform == model.PlatformMixpanel && ev.EventName == "Clicked" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a mixpanel event with eventName=Clicked, got %+v", events)
	}
}

func TestAnalyzeLinks_DeviceVariant_S2(t *testing.T) {
	html := `<html><body>
<a class="desktop-cta" data-viewport="desktop" href="/cta?utm_source=desktop">Desktop</a>
<a class="mobile-cta" data-device="mobile" href="/cta?utm_source=mobile">Mobile</a>
</body></html>`

	links := AnalyzeLinks(html, "https://example.com")
	if len(links.UTMSummary.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(links.UTMSummary.Examples))
	}

	variants := map[string]bool{}
	for _, ex := range links.UTMSummary.Examples {
		variants[ex.DeviceVariant] = true
	}
	if !variants["desktop"] || !variants["mobile"] {
		t.Errorf("expected desktop and mobile variants, got %+v", links.UTMSummary.Examples)
	}
}

func TestAggregateSummaries_S3(t *testing.T) {
	seo1 := AnalyzeSeo(s1HTML)
	links1 := AnalyzeLinks(s1HTML, "https://example.com")
	tracking1 := AnalyzeTracking(s1HTML)
	jsonLd1 := AnalyzeJsonLd(s1HTML)
	summary1 := BuildIssueSummary(seo1, links1, tracking1, jsonLd1)

	page2HTML := `<html><head></head><body><a href="/about">About</a></body></html>`
	seo2 := AnalyzeSeo(page2HTML)
	links2 := AnalyzeLinks(page2HTML, "https://example.com")
	tracking2 := AnalyzeTracking(page2HTML)
	jsonLd2 := AnalyzeJsonLd(page2HTML)
	summary2 := BuildIssueSummary(seo2, links2, tracking2, jsonLd2)

	agg := AggregateSummaries([]model.IssueSummary{summary1, summary2})

	if agg.PagesAnalysed != 2 {
		t.Errorf("pagesAnalysed = %d, want 2", agg.PagesAnalysed)
	}
	if agg.MissingTitle != 1 {
		t.Errorf("missingTitle = %d, want 1", agg.MissingTitle)
	}
	if agg.MixpanelMissing != 1 {
		t.Errorf("mixpanelMissing = %d, want 1", agg.MixpanelMissing)
	}
	if agg.Scorecard.SEOAverageScore <= 0 {
		t.Errorf("seoAverageScore = %d, want > 0", agg.Scorecard.SEOAverageScore)
	}
	if agg.Scorecard.UTMCoveragePercent < 0 || agg.Scorecard.UTMCoveragePercent > 100 {
		t.Errorf("utmCoveragePercent out of range: %d", agg.Scorecard.UTMCoveragePercent)
	}
}

func TestAggregateSummaries_EmptyInput(t *testing.T) {
	agg := AggregateSummaries(nil)
	if agg.PagesAnalysed != 0 {
		t.Fatalf("expected zero pagesAnalysed, got %d", agg.PagesAnalysed)
	}
	if agg.Scorecard.UTMCoveragePercent != 0 {
		t.Errorf("expected zero scorecard on empty input, got %+v", agg.Scorecard)
	}
}

func TestH1Quality_NullAndEmpty(t *testing.T) {
	if r := computeH1Quality("", "Title"); r.Score != 0 {
		t.Errorf("null H1 should score 0, got %d", r.Score)
	}
	if r := computeH1Quality("<span></span>", "Title"); r.Score != 0 {
		t.Errorf("empty-after-strip H1 should score 0, got %d", r.Score)
	}
}

func TestH1Quality_Range(t *testing.T) {
	r := computeH1Quality("Discover the Best Guide to Growing Your Business", "Growing Your Business Guide")
	if r.Score < 0 || r.Score > 100 {
		t.Errorf("H1 score out of range: %d", r.Score)
	}
}

func TestAnalyzeLinks_Idempotent(t *testing.T) {
	a := AnalyzeLinks(s1HTML, "https://example.com")
	b := AnalyzeLinks(s1HTML, "https://example.com")

	if a.InternalLinks != b.InternalLinks || a.ExternalLinks != b.ExternalLinks {
		t.Fatal("analyzeLinks is not idempotent on link counts")
	}
	if len(a.UTMSummary.Examples) != len(b.UTMSummary.Examples) {
		t.Fatal("analyzeLinks is not idempotent on examples")
	}
}

func TestNormalizeURL_Idempotent(t *testing.T) {
	u := "https://example.com/page/#section"
	once := NormalizeURL(u)
	twice := NormalizeURL(once)
	if once != twice {
		t.Errorf("normalize not idempotent: %q vs %q", once, twice)
	}
}

func TestAnalyzeJsonLd_SyntheticRequiredFieldsOnly(t *testing.T) {
	for typeName, rule := range SchemaRules {
		obj := map[string]any{
			"@context": "https://schema.org",
			"@type":    typeName,
		}
		for _, f := range rule.Required {
			obj[f] = "x"
		}
		block := scoreJsonLdObject(obj)
		if block.Score < 70 {
			t.Errorf("%s: score = %v, want >= 70", typeName, block.Score)
		}
		if len(block.Errors) != 0 {
			t.Errorf("%s: errors = %v, want none", typeName, block.Errors)
		}
	}
}
