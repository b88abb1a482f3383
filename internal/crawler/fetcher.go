package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// Fetcher retrieves pages with a bounded timeout, a shared request
// rate limit and a per-host robots.txt gate.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	robotsCache map[string]*robotstxt.RobotsData
	robotsMu    sync.RWMutex
	userAgent   string
}

// NewFetcher builds a fetcher. requestsPerSec <= 0 disables rate
// limiting, which the tests rely on.
func NewFetcher(userAgent string, timeout time.Duration, requestsPerSec float64) *Fetcher {
	limit := rate.Inf
	if requestsPerSec > 0 {
		limit = rate.Limit(requestsPerSec)
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(limit, 1),
		robotsCache: make(map[string]*robotstxt.RobotsData),
		userAgent:   userAgent,
	}
}

// Fetch retrieves urlStr. Any network error, robots denial or
// non-success status is returned as an error; the caller abandons the
// URL without retrying.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*http.Response, error) {
	if !f.isAllowed(urlStr) {
		return nil, fmt.Errorf("disallowed by robots.txt")
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("non-success status: %d", resp.StatusCode)
	}
	return resp, nil
}

func (f *Fetcher) isAllowed(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	f.robotsMu.RLock()
	robots, exists := f.robotsCache[robotsURL]
	f.robotsMu.RUnlock()

	if !exists {
		robots = f.fetchRobotsTxt(robotsURL)
		f.robotsMu.Lock()
		f.robotsCache[robotsURL] = robots
		f.robotsMu.Unlock()
	}

	if robots == nil {
		return true
	}
	return robots.FindGroup(f.userAgent).Test(u.Path)
}

func (f *Fetcher) fetchRobotsTxt(robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}
