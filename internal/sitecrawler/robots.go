package sitecrawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/temoto/robotstxt"
)

// robotsFetcher fetches and parses robots.txt for a host, memoizing
// the raw bytes in Redis (when configured) so repeated crawls of the
// same site within the TTL window skip the network round trip.
type robotsFetcher struct {
	client      *http.Client
	redisClient *redis.Client
	redisTTL    time.Duration
}

func newRobotsFetcher(client *http.Client, redisClient *redis.Client, redisTTL time.Duration) *robotsFetcher {
	return &robotsFetcher{client: client, redisClient: redisClient, redisTTL: redisTTL}
}

func (f *robotsFetcher) fetch(ctx context.Context, base *url.URL, userAgent string) (*robotstxt.RobotsData, error) {
	cacheKey := "scanengine:robots:" + base.Hostname()

	if f.redisClient != nil {
		if cached, err := f.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
			return robotstxt.FromBytes(cached)
		}
	}

	body, err := f.fetchLive(ctx, base, userAgent)
	if err != nil {
		return nil, err
	}

	if f.redisClient != nil {
		_ = f.redisClient.Set(ctx, cacheKey, body, f.redisTTL).Err()
	}

	return robotstxt.FromBytes(body)
}

func (f *robotsFetcher) fetchLive(ctx context.Context, base *url.URL, userAgent string) ([]byte, error) {
	robotsURL := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("non-200 robots.txt")
	}

	return io.ReadAll(resp.Body)
}

func allowedByRobots(data *robotstxt.RobotsData, userAgent, targetURL string) bool {
	if data == nil {
		return true
	}
	grp := data.FindGroup(userAgent)
	if grp == nil {
		return true
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return true
	}
	return grp.Test(u.RequestURI())
}
