package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const robotsUserAgent = "campus-notice-bot"

// RobotsCache caches per-host robots.txt verdicts. Fetch or parse failures
// default to allowed — the boards we scan publish notices to be read.
type RobotsCache struct {
	cache map[string]*robotsEntry
	ttl   time.Duration
	mu    sync.RWMutex
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration) *RobotsCache {
	return &RobotsCache{
		cache: make(map[string]*robotsEntry),
		ttl:   ttl,
	}
}

// IsAllowed reports whether pageURL may be fetched according to its host's
// robots.txt. The robots file is fetched over the same scheme as the page
// and the verdict is cached for the configured TTL.
func (rc *RobotsCache) IsAllowed(ctx context.Context, pageURL string, client *http.Client) (bool, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return true, nil
	}
	host := parsed.Host

	rc.mu.RLock()
	cached, exists := rc.cache[host]
	rc.mu.RUnlock()

	if exists && time.Now().Before(cached.expiresAt) {
		return verdict(cached.data, parsed), nil
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true, nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return true, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return true, nil
	}

	rc.mu.Lock()
	rc.cache[host] = &robotsEntry{
		data:      data,
		expiresAt: time.Now().Add(rc.ttl),
	}
	rc.mu.Unlock()

	return verdict(data, parsed), nil
}

func verdict(data *robotstxt.RobotsData, parsed *url.URL) bool {
	if data == nil {
		return true
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, robotsUserAgent)
}
