// Package pipeline implements the Page Pipeline: fetching one URL
// (static or browser), running the HTML analyzers over the result,
// and persisting the result: the page row is created first, then on
// success the page update and its child metric rows are written in one
// transaction (store.SavePageResult); a fetch failure is recorded
// separately (store.FailPage).
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"

	"seoscan/internal/analyzer"
	"seoscan/internal/browserworker"
	"seoscan/internal/config"
	"seoscan/internal/metrics"
	"seoscan/internal/model"
	"seoscan/internal/scraper"
	"seoscan/internal/store"
)

const (
	maxDiscoveredURLs = 200
	maxUTMExamples    = 50
	excerptMaxLen     = 280
)

// Options controls how the pipeline fetches a page, mirroring
// config.ScannerConfig.
type Options struct {
	UserAgent      string
	RequestTimeout time.Duration
	UseBrowser     bool
	DeviceProfiles []string
	BrowserTimeout time.Duration
}

// OptionsFromConfig builds pipeline Options from the scanner section of
// the loaded config.
func OptionsFromConfig(cfg config.ScannerConfig) Options {
	profiles := cfg.DeviceProfiles
	if len(profiles) == 0 {
		profiles = []string{"desktop"}
	}
	return Options{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		UseBrowser:     cfg.UseBrowser,
		DeviceProfiles: profiles,
		BrowserTimeout: time.Duration(cfg.BrowserTimeoutMs) * time.Millisecond,
	}
}

// SingleScanResult is scanSinglePage's contract: one fetched+analyzed
// page's outcome, used directly by single-mode jobs and by the Site
// Crawler's BFS loop.
type SingleScanResult struct {
	PageID         string
	PagesTotal     int
	PagesFinished  int
	DiscoveredURLs []string
	HTTPStatus     int
	LoadTimeMs     int
	IssueSummary   model.IssueSummary
	URL            string
	Excerpt        string
}

// Pipeline wires the static/browser fetchers and the analyzer suite to
// the store.
type Pipeline struct {
	store   *store.Store
	opts    Options
	fetcher *scraper.HTTPScraper
	browser *browserworker.Worker
}

// New builds a Pipeline backed by st, configured with opts.
func New(st *store.Store, opts Options) *Pipeline {
	return &Pipeline{
		store:   st,
		opts:    opts,
		fetcher: scraper.NewHTTPScraper(opts.RequestTimeout),
		browser: browserworker.New(opts.BrowserTimeout),
	}
}

// ScanSinglePage fetches pageURL, runs the analyzer suite, and
// persists the outcome for jobID. On any fetch/analysis failure the
// Page row is still written as failed (see store.FailPage) and the
// error is returned so callers can decide how to react.
func (p *Pipeline) ScanSinglePage(ctx context.Context, jobID uuid.UUID, pageURL string) (*SingleScanResult, error) {
	pageID := uuid.New()
	deviceVariant := ""
	if p.opts.UseBrowser && len(p.opts.DeviceProfiles) > 0 {
		deviceVariant = p.opts.DeviceProfiles[0]
	}

	if _, err := p.store.CreatePage(ctx, pageID, jobID, pageURL, deviceVariant); err != nil {
		return nil, fmt.Errorf("pipeline: create page: %w", err)
	}

	fetch, err := p.fetchPage(ctx, pageURL)
	if err != nil {
		summary := model.IssueSummary{Error: err.Error()}
		var status *int
		if fetch != nil {
			status = &fetch.httpStatus
		}
		_ = p.store.FailPage(ctx, pageID, status, &summary)
		metrics.RecordPageTerminal(string(model.PageFailed))
		return nil, fmt.Errorf("pipeline: fetch %s: %w", pageURL, err)
	}

	analysis := analyzer.Analyze(fetch.html, pageURL)
	if fetch.browserLinks != nil {
		analysis.Links = fetch.browserLinks
	}
	if fetch.browserTracking != nil {
		analysis.Tracking = fetch.browserTracking
	}

	summary := analyzer.BuildIssueSummary(analysis.SEO, analysis.Links, analysis.Tracking, analysis.JsonLd)

	seoRow := &model.SeoMetrics{
		PageID:              pageID.String(),
		Title:               analysis.SEO.Title,
		MetaDescription:     analysis.SEO.MetaDescription,
		Canonical:           analysis.SEO.Canonical,
		H1:                  analysis.SEO.H1,
		RobotsNoindex:       analysis.SEO.RobotsNoindex,
		SchemaOrg:           analysis.SEO.SchemaOrg,
		Score:               analysis.SEO.Score,
		JSONLDScore:         analysis.JsonLd.Score,
		JSONLDTypes:         analysis.JsonLd.Types,
		JSONLDIssues:        analysis.JsonLd.Issues,
		HTMLStructureScore:  analysis.HtmlStructure.OverallScore,
		HTMLStructureIssues: analysis.HtmlStructure.Issues,
	}
	linkRow := &model.LinkMetrics{
		PageID:        pageID.String(),
		InternalLinks: analysis.Links.InternalLinks,
		ExternalLinks: analysis.Links.ExternalLinks,
		UTMParams:     &analysis.Links.UTMSummary,
	}

	httpStatus := fetch.httpStatus
	loadTimeMs := fetch.loadTimeMs
	if err := p.store.SavePageResult(ctx, store.PageResult{
		PageID:        pageID,
		Status:        model.PageCompleted,
		HTTPStatus:    &httpStatus,
		LoadTimeMs:    &loadTimeMs,
		IssueCounts:   &summary,
		SEO:           seoRow,
		Link:          linkRow,
		TrackingEvent: analysis.Tracking,
	}); err != nil {
		return nil, fmt.Errorf("pipeline: save page result: %w", err)
	}
	metrics.RecordPageTerminal(string(model.PageCompleted))

	return &SingleScanResult{
		PageID:         pageID.String(),
		PagesTotal:     1,
		PagesFinished:  1,
		DiscoveredURLs: analysis.Links.DiscoveredURLs,
		HTTPStatus:     httpStatus,
		LoadTimeMs:     loadTimeMs,
		IssueSummary:   summary,
		URL:            pageURL,
		Excerpt:        excerpt(fetch.html, pageURL),
	}, nil
}

type fetchResult struct {
	html            string
	httpStatus      int
	loadTimeMs      int
	browserLinks    *analyzer.LinkAnalysis
	browserTracking []model.TrackingEvent
}

func (p *Pipeline) fetchPage(ctx context.Context, pageURL string) (*fetchResult, error) {
	if !p.opts.UseBrowser {
		return p.fetchStatic(ctx, pageURL)
	}
	return p.fetchBrowser(ctx, pageURL)
}

func (p *Pipeline) fetchStatic(ctx context.Context, pageURL string) (*fetchResult, error) {
	start := time.Now()
	res, err := p.fetcher.Scrape(ctx, scraper.Request{
		URL:       pageURL,
		Timeout:   p.opts.RequestTimeout,
		UserAgent: p.opts.UserAgent,
	})
	elapsed := time.Since(start)
	if err != nil {
		return &fetchResult{httpStatus: 0, loadTimeMs: int(elapsed.Milliseconds())}, err
	}
	return &fetchResult{
		html:       res.HTML,
		httpStatus: res.Status,
		loadTimeMs: int(elapsed.Milliseconds()),
	}, nil
}

// fetchBrowser runs the Browser Worker for every configured device
// profile. The first profile is primary: its HTML populates the Page
// row, and its link counts become the page's internal/external
// counts. UTM and tracking findings are aggregated across all
// profiles, matching spec.md §4.3 step 2's browser-mode contract.
func (p *Pipeline) fetchBrowser(ctx context.Context, pageURL string) (*fetchResult, error) {
	profiles := p.opts.DeviceProfiles
	if len(profiles) == 0 {
		profiles = []string{"desktop"}
	}

	var primaryHTML string
	var primaryElapsed time.Duration
	combinedLinks := analyzer.LinkAnalysis{UTMSummary: model.UTMSummary{Examples: []model.UTMExample{}}}
	var combinedTracking []model.TrackingEvent

	for i, profileName := range profiles {
		start := time.Now()
		res, err := p.browser.ScanPage(ctx, pageURL, profileName)
		elapsed := time.Since(start)
		if err != nil {
			if i == 0 {
				return &fetchResult{loadTimeMs: int(elapsed.Milliseconds())}, err
			}
			continue
		}

		profileLinks := linkAnalysisFromAnchors(res.Links, pageURL)
		if i == 0 {
			primaryHTML = res.HTML
			primaryElapsed = elapsed
			combinedLinks.InternalLinks = profileLinks.InternalLinks
			combinedLinks.ExternalLinks = profileLinks.ExternalLinks
			combinedLinks.DiscoveredURLs = profileLinks.DiscoveredURLs
		}

		combinedLinks.UTMSummary.TrackedLinks += profileLinks.UTMSummary.TrackedLinks
		combinedLinks.UTMSummary.MissingUTM += profileLinks.UTMSummary.MissingUTM
		for _, ex := range profileLinks.UTMSummary.Examples {
			if len(combinedLinks.UTMSummary.Examples) >= maxUTMExamples {
				break
			}
			combinedLinks.UTMSummary.Examples = append(combinedLinks.UTMSummary.Examples, ex)
		}
		combinedTracking = append(combinedTracking, res.TrackingEvents...)
	}

	if primaryHTML == "" {
		return nil, fmt.Errorf("pipeline: all device profiles failed for %s", pageURL)
	}

	return &fetchResult{
		html:            primaryHTML,
		httpStatus:      200,
		loadTimeMs:      int(primaryElapsed.Milliseconds()),
		browserLinks:    &combinedLinks,
		browserTracking: combinedTracking,
	}, nil
}

// linkAnalysisFromAnchors synthesizes an analyzer.LinkAnalysis from
// Browser Worker anchor output, the equivalent spec.md §4.3 step 3
// names as the browser-mode alternative to analyzeLinks.
func linkAnalysisFromAnchors(anchors []browserworker.AnchorInfo, baseURL string) analyzer.LinkAnalysis {
	result := analyzer.LinkAnalysis{UTMSummary: model.UTMSummary{Examples: []model.UTMExample{}}}

	base, err := url.Parse(baseURL)
	if err != nil {
		return result
	}

	discoveredSeen := make(map[string]bool)

	for _, a := range anchors {
		linkURL, err := url.Parse(a.URL)
		if err != nil {
			continue
		}
		isInternal := strings.EqualFold(linkURL.Hostname(), base.Hostname())
		if isInternal {
			result.InternalLinks++
		} else {
			result.ExternalLinks++
		}

		hasUTM := len(a.UTMParams) > 0
		if hasUTM {
			result.UTMSummary.TrackedLinks++
		} else if isInternal {
			result.UTMSummary.MissingUTM++
		}

		if isInternal {
			normalized := analyzer.NormalizeURL(a.URL)
			if !discoveredSeen[normalized] && len(result.DiscoveredURLs) < maxDiscoveredURLs {
				discoveredSeen[normalized] = true
				result.DiscoveredURLs = append(result.DiscoveredURLs, normalized)
			}
		}

		if (hasUTM || isInternal) && len(result.UTMSummary.Examples) < maxUTMExamples {
			var heading *model.HeadingRef
			if a.NearestHeading != "" {
				heading = &model.HeadingRef{Text: a.NearestHeading}
			}
			result.UTMSummary.Examples = append(result.UTMSummary.Examples, model.UTMExample{
				URL:     a.URL,
				Params:  a.UTMParams,
				Text:    a.InnerText,
				Heading: heading,
			})
		}
	}

	return result
}

// excerpt renders a short markdown excerpt of the fetched HTML for the
// page_completed task event's human-readable message.
func excerpt(html, pageURL string) string {
	if html == "" {
		return ""
	}
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	converter := htmlmd.NewConverter(host, true, nil)
	md, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	md = strings.TrimSpace(md)
	if len(md) > excerptMaxLen {
		return md[:excerptMaxLen] + "…"
	}
	return md
}
