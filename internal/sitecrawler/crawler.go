// Package sitecrawler implements the Site Crawler: BFS expansion from
// a seed URL (plus optional sitemap.xml discovery), delegating each
// URL to the Page Pipeline and aggregating per-page summaries.
package sitecrawler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/temoto/robotstxt"

	"seoscan/internal/analyzer"
	"seoscan/internal/model"
	"seoscan/internal/pipeline"
	"seoscan/internal/scrapeutil"
)

// maxDiscoveredPerPage bounds how many of one page's discovered URLs
// the crawler will enqueue, independent of the analyzer's own cap.
const maxDiscoveredPerPage = 200

// Options controls one BFS crawl.
type Options struct {
	DepthLimit     int
	MaxPages       int
	UserAgent      string
	RequestTimeout time.Duration
	RespectRobots  bool
	RedisURL       string
	RedisTTL       time.Duration
}

// OnPage is invoked once per processed page, in BFS order, used by the
// Executor to update progress and observe cancellation. Returning an
// error aborts the crawl; the error is propagated to the caller of
// ScanSite unchanged.
type OnPage func(ctx context.Context, result *pipeline.SingleScanResult) error

// Result is scanSite's contract.
type Result struct {
	IssueSummary  model.Aggregated
	PagesTotal    int
	PagesFinished int
}

type queueEntry struct {
	url   string
	depth int
}

// PagePipeline is the subset of *pipeline.Pipeline the crawler needs,
// narrowed to an interface so tests can substitute a fake.
type PagePipeline interface {
	ScanSinglePage(ctx context.Context, jobID uuid.UUID, pageURL string) (*pipeline.SingleScanResult, error)
}

// ScanSite performs the BFS crawl named in spec.md §4.4, invoking the
// Page Pipeline for each URL it visits.
func ScanSite(ctx context.Context, p PagePipeline, jobID uuid.UUID, targetURL string, opts Options, onPage OnPage) (*Result, error) {
	base, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: opts.RequestTimeout}

	var robotsData *robotstxt.RobotsData
	if opts.RespectRobots {
		redisClient := newOptionalRedisClient(opts.RedisURL)
		fetcher := newRobotsFetcher(httpClient, redisClient, opts.RedisTTL)
		robotsData, _ = fetcher.fetch(ctx, base, opts.UserAgent)
	}

	queue := []queueEntry{{url: targetURL, depth: 0}}
	visited := make(map[string]bool)

	if locs, err := fetchSitemap(ctx, httpClient, base, opts.UserAgent); err == nil {
		for _, loc := range locs {
			if len(queue) >= opts.MaxPages {
				break
			}
			queue = append(queue, queueEntry{url: loc, depth: 1})
		}
	}

	var summaries []model.IssueSummary
	processed := 0

	for len(queue) > 0 && processed < opts.MaxPages {
		entry := queue[0]
		queue = queue[1:]

		normalized := analyzer.NormalizeURL(entry.url)
		if visited[normalized] {
			continue
		}
		visited[normalized] = true

		if robotsData != nil && !allowedByRobots(robotsData, opts.UserAgent, entry.url) {
			continue
		}

		result, err := p.ScanSinglePage(ctx, jobID, entry.url)
		processed++
		if err != nil {
			// A failed page is still recorded by the Pipeline (Page row
			// written as failed); the crawl continues to the next URL.
			continue
		}

		summaries = append(summaries, result.IssueSummary)

		if onPage != nil {
			if err := onPage(ctx, result); err != nil {
				return nil, err
			}
		}

		if entry.depth+1 <= opts.DepthLimit {
			// Re-filter to the seed's own host before enqueuing: the
			// analyzer already restricts DiscoveredURLs to internal
			// links, but the crawler shouldn't trust that upstream
			// invariant blindly when deciding what it will itself fetch.
			candidates := scrapeutil.FilterLinks(result.DiscoveredURLs, targetURL, true, maxDiscoveredPerPage)
			for _, discovered := range candidates {
				if len(queue)+processed >= opts.MaxPages {
					break
				}
				normalizedDiscovered := analyzer.NormalizeURL(discovered)
				if visited[normalizedDiscovered] {
					continue
				}
				queue = append(queue, queueEntry{url: discovered, depth: entry.depth + 1})
			}
		}
	}

	return &Result{
		IssueSummary:  analyzer.AggregateSummaries(summaries),
		PagesTotal:    opts.MaxPages,
		PagesFinished: processed,
	}, nil
}

func newOptionalRedisClient(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	optsFromURL, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil
	}
	return redis.NewClient(optsFromURL)
}
