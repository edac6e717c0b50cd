package sitecrawler

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
)

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// fetchSitemap fetches base's conventional /sitemap.xml and returns the
// <loc> entries it lists.
func fetchSitemap(ctx context.Context, client *http.Client, base *url.URL, userAgent string) ([]string, error) {
	sitemapURL := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL.String(), nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("non-200 sitemap")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, err
	}

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if u.Loc != "" {
			locs = append(locs, u.Loc)
		}
	}
	return locs, nil
}
