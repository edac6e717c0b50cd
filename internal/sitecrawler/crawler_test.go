package sitecrawler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/temoto/robotstxt"

	"seoscan/internal/model"
	"seoscan/internal/pipeline"
)

type fakePipeline struct {
	byURL map[string]*pipeline.SingleScanResult
	calls []string
}

func (f *fakePipeline) ScanSinglePage(_ context.Context, _ uuid.UUID, pageURL string) (*pipeline.SingleScanResult, error) {
	f.calls = append(f.calls, pageURL)
	if r, ok := f.byURL[pageURL]; ok {
		return r, nil
	}
	return &pipeline.SingleScanResult{URL: pageURL, PagesTotal: 1, PagesFinished: 1}, nil
}

func TestScanSite_BFSExpandsDiscoveredURLs(t *testing.T) {
	fake := &fakePipeline{byURL: map[string]*pipeline.SingleScanResult{
		"https://example.com": {
			URL: "https://example.com", PagesTotal: 1, PagesFinished: 1,
			DiscoveredURLs: []string{"https://example.com/about", "https://example.com/contact"},
			IssueSummary:   model.IssueSummary{SEOScore: 80},
		},
		"https://example.com/about": {
			URL: "https://example.com/about", PagesTotal: 1, PagesFinished: 1,
			IssueSummary: model.IssueSummary{SEOScore: 90},
		},
		"https://example.com/contact": {
			URL: "https://example.com/contact", PagesTotal: 1, PagesFinished: 1,
			IssueSummary: model.IssueSummary{SEOScore: 70},
		},
	}}

	opts := Options{DepthLimit: 1, MaxPages: 10, RequestTimeout: time.Second}
	result, err := ScanSite(context.Background(), fake, uuid.New(), "https://example.com", opts, nil)
	if err != nil {
		t.Fatalf("ScanSite returned error: %v", err)
	}

	if result.PagesFinished != 3 {
		t.Errorf("pagesFinished = %d, want 3", result.PagesFinished)
	}
	if result.IssueSummary.PagesAnalysed != 3 {
		t.Errorf("pagesAnalysed = %d, want 3", result.IssueSummary.PagesAnalysed)
	}
	if len(fake.calls) != 3 {
		t.Errorf("expected 3 pipeline calls, got %d: %v", len(fake.calls), fake.calls)
	}
}

func TestScanSite_RespectsMaxPages(t *testing.T) {
	fake := &fakePipeline{byURL: map[string]*pipeline.SingleScanResult{
		"https://example.com": {
			URL: "https://example.com", DiscoveredURLs: []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"},
		},
	}}

	opts := Options{DepthLimit: 2, MaxPages: 2, RequestTimeout: time.Second}
	result, err := ScanSite(context.Background(), fake, uuid.New(), "https://example.com", opts, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PagesFinished > 2 {
		t.Errorf("pagesFinished = %d, want <= 2", result.PagesFinished)
	}
}

func TestScanSite_StopsOnOnPageError(t *testing.T) {
	fake := &fakePipeline{byURL: map[string]*pipeline.SingleScanResult{
		"https://example.com": {URL: "https://example.com", DiscoveredURLs: []string{"https://example.com/a"}},
	}}

	wantErr := context.Canceled
	_, err := ScanSite(context.Background(), fake, uuid.New(), "https://example.com", Options{DepthLimit: 1, MaxPages: 5, RequestTimeout: time.Second},
		func(_ context.Context, _ *pipeline.SingleScanResult) error { return wantErr })
	if err != wantErr {
		t.Errorf("expected onPage error to propagate, got %v", err)
	}
}

func TestAllowedByRobots(t *testing.T) {
	data, err := robotstxt.FromString("User-agent: *\nDisallow: /admin\n")
	if err != nil {
		t.Fatalf("parse robots: %v", err)
	}
	if !allowedByRobots(data, "scanengine", "https://example.com/about") {
		t.Error("expected /about to be allowed")
	}
	if allowedByRobots(data, "scanengine", "https://example.com/admin/panel") {
		t.Error("expected /admin/panel to be disallowed")
	}
}
