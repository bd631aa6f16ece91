package ingest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// HTMLListAdapter scrapes procurement list pages. Each configured seed
// URL is visited once; items are extracted with the source's CSS
// selectors.
type HTMLListAdapter struct {
	Source   SourceConfig
	FetchCfg FetchConfig
}

func NewHTMLListAdapter(src SourceConfig, fetch FetchConfig) *HTMLListAdapter {
	if src.Fetch.TimeoutSeconds > 0 || src.Fetch.MaxRetries > 0 || src.Fetch.RateLimitRPS > 0 {
		fetch = src.Fetch
	}
	return &HTMLListAdapter{Source: src, FetchCfg: fetch}
}

func (a *HTMLListAdapter) Name() string       { return a.Source.Name }
func (a *HTMLListAdapter) SourceType() string { return a.Source.SourceType }

// Fetch visits each seed page and extracts one RawOpportunity per
// container element. A seed failing is logged and skipped; the adapter
// only errors when every seed failed.
func (a *HTMLListAdapter) Fetch(ctx context.Context) ([]RawOpportunity, error) {
	sel := a.Source.Selectors
	if sel.Container == "" {
		return nil, fmt.Errorf("source %s: no container selector configured", a.Source.ID)
	}

	var (
		mu   sync.Mutex
		raws []RawOpportunity
	)

	c := a.buildCollector()
	c.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		raw, ok := a.extractItem(e)
		if !ok {
			return
		}
		mu.Lock()
		raws = append(raws, raw)
		mu.Unlock()
	})

	var lastErr error
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		lastErr = err
		mu.Unlock()
		log.Printf("[HTMLList] %s: fetch error for %s: %v", a.Source.ID, r.Request.URL, err)
	})

	seeds := a.Source.Seeds
	if len(seeds) == 0 && a.Source.BaseURL != "" {
		seeds = []string{a.Source.BaseURL}
	}

	visited := 0
	maxPages := a.Source.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	for _, seed := range seeds {
		if visited >= maxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return raws, err
		}
		if err := c.Visit(seed); err != nil {
			lastErr = err
			log.Printf("[HTMLList] %s: visit failed for %s: %v", a.Source.ID, seed, err)
			continue
		}
		visited++
	}
	c.Wait()

	if len(raws) == 0 && lastErr != nil {
		return nil, fmt.Errorf("source %s: all pages failed: %w", a.Source.ID, lastErr)
	}
	return raws, nil
}

func (a *HTMLListAdapter) buildCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		colly.MaxBodySize(10*1024*1024),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
	)

	delay := time.Second
	if a.FetchCfg.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / a.FetchCfg.RateLimitRPS)
	}
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       delay,
		RandomDelay: delay / 2,
	})

	timeout := 30 * time.Second
	if a.FetchCfg.TimeoutSeconds > 0 {
		timeout = time.Duration(a.FetchCfg.TimeoutSeconds) * time.Second
	}
	c.SetRequestTimeout(timeout)

	return c
}

func (a *HTMLListAdapter) extractItem(e *colly.HTMLElement) (RawOpportunity, bool) {
	sel := a.Source.Selectors

	title := strings.TrimSpace(e.ChildText(sel.Title))
	if title == "" && sel.Title == "" {
		title = strings.TrimSpace(e.Text)
	}
	if title == "" {
		return RawOpportunity{}, false
	}

	link := ""
	if sel.Link != "" {
		attr := sel.LinkAttr
		if attr == "" {
			attr = "href"
		}
		if sel.Link == "." {
			link = e.Attr(attr)
		} else {
			link = e.ChildAttr(sel.Link, attr)
		}
		link = resolveLink(e, link)
	}

	raw := RawOpportunity{
		Title:       title,
		Agency:      a.Source.Name,
		Country:     a.Source.Country,
		RawDeadline: strings.TrimSpace(e.ChildText(sel.Deadline)),
		RawAmount:   strings.TrimSpace(e.ChildText(sel.Amount)),
		SourceName:  a.Source.Name,
		SourceType:  a.Source.SourceType,
	}
	if sel.Content != "" {
		raw.Description = strings.TrimSpace(e.ChildText(sel.Content))
	}
	if link != "" {
		raw.Links = []string{link}
	}
	return raw, true
}

func resolveLink(e *colly.HTMLElement, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if u, err := url.Parse(link); err == nil && u.IsAbs() {
		return link
	}
	return e.Request.AbsoluteURL(link)
}
