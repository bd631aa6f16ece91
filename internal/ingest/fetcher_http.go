package ingest

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"time"
)

var blockedPrefixes = func() []netip.Prefix {
	specs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	prefixes := make([]netip.Prefix, 0, len(specs))
	for _, s := range specs {
		if p, err := netip.ParsePrefix(s); err == nil {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}()

// HTTPFetcher fetches documents with per-host rate limiting, retries
// with backoff, and a dialer that refuses private address ranges.
type HTTPFetcher struct {
	client *http.Client
	config FetchConfig

	mu       sync.Mutex
	limiters map[string]*time.Ticker
}

func NewHTTPFetcher(config FetchConfig) *HTTPFetcher {
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 30
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RateLimitRPS <= 0 {
		config.RateLimitRPS = 1.0
	}
	if config.AcceptLanguage == "" {
		config.AcceptLanguage = "en-US,en;q=0.5"
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           safeDialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:       time.Duration(config.TimeoutSeconds) * time.Second,
			Transport:     transport,
			CheckRedirect: safeCheckRedirect,
		},
		config:   config,
		limiters: make(map[string]*time.Ticker),
	}
}

// Fetch retrieves a URL with GET. Timeouts and 429/5xx responses are
// retried with exponential backoff plus jitter; other failures return
// immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*FetchedDocument, error) {
	return f.do(ctx, rawURL, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	})
}

// Post sends a request body to a URL with the same rate limiting and
// retry behavior as Fetch. The body is replayed on each retry.
func (f *HTTPFetcher) Post(ctx context.Context, rawURL, contentType string, body []byte) (*FetchedDocument, error) {
	return f.do(ctx, rawURL, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string, build func() (*http.Request, error)) (*FetchedDocument, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	f.waitForHost(u.Host)

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			jitter := time.Duration(rand.Intn(100)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		doc, retryable, err := f.fetchOnce(rawURL, build)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (f *HTTPFetcher) fetchOnce(rawURL string, build func() (*http.Request, error)) (*FetchedDocument, bool, error) {
	req, err := build()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	}
	req.Header.Set("Accept-Language", f.config.AcceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
			return nil, true, fmt.Errorf("request timed out: %w", err)
		}
		return nil, false, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return &FetchedDocument{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
		FetchedAt:   time.Now(),
		Headers:     resp.Header,
	}, false, nil
}

// waitForHost blocks until the per-host ticker fires, keeping request
// spacing at or below the configured rate.
func (f *HTTPFetcher) waitForHost(host string) {
	f.mu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		interval := time.Duration(float64(time.Second) / f.config.RateLimitRPS)
		if interval <= 0 {
			interval = time.Second
		}
		limiter = time.NewTicker(interval)
		f.limiters[host] = limiter
		f.mu.Unlock()
		return // first request to a host goes straight through
	}
	f.mu.Unlock()
	<-limiter.C
}

// safeDialContext blocks connections to private, loopback and
// link-local addresses before dialing.
func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("blocked private IP: %s", ip)
		}
	}

	return d.DialContext(ctx, network, addr)
}

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	if addr, ok := netip.AddrFromSlice(ip); ok {
		for _, prefix := range blockedPrefixes {
			if prefix.Contains(addr.Unmap()) {
				return true
			}
		}
	}
	return false
}

// safeCheckRedirect limits redirect depth and refuses redirects into
// internal hosts or non-HTTP schemes.
func safeCheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	if req.URL == nil {
		return fmt.Errorf("invalid redirect URL")
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect scheme blocked")
	}

	host := req.URL.Hostname()
	if host == "" {
		return fmt.Errorf("redirect host missing")
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return fmt.Errorf("redirect to internal host blocked")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return err
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("redirect to private IP blocked: %s", ip)
		}
	}
	return nil
}
