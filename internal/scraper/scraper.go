// Package scraper implements the Page Pipeline's static fetch mode: a
// plain net/http GET that follows redirects and reports the final
// status and body; elapsed time is measured by the caller in
// internal/pipeline. (The browser fetch mode lives in
// internal/browserworker; the analyzers that turn the returned HTML
// into findings live in internal/analyzer.)
package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Request is one static fetch request.
type Request struct {
	URL       string
	Headers   map[string]string
	Timeout   time.Duration
	UserAgent string
}

// Result is the static fetch's output: the raw HTML body plus the
// final HTTP status after following redirects.
type Result struct {
	URL    string
	HTML   string
	Status int
}

// Scraper is the static fetch interface HTTPScraper satisfies;
// internal/pipeline holds a concrete *HTTPScraper.
type Scraper interface {
	Scrape(ctx context.Context, req Request) (*Result, error)
}

// HTTPScraper fetches a page with net/http, following redirects and
// honoring a per-request timeout.
type HTTPScraper struct {
	client *http.Client
}

// NewHTTPScraper builds an HTTPScraper with the given per-request
// timeout (spec.md's SCANNER_REQUEST_TIMEOUT_MS).
func NewHTTPScraper(timeout time.Duration) *HTTPScraper {
	return &HTTPScraper{
		client: &http.Client{Timeout: timeout},
	}
}

// Scrape performs the GET, returning the final status and body even
// on a non-2xx response; only transport-level failures (DNS, refused
// connection, timeout) are returned as an error.
func (s *HTTPScraper) Scrape(ctx context.Context, req Request) (*Result, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:    u.String(),
		HTML:   string(bodyBytes),
		Status: resp.StatusCode,
	}, nil
}
