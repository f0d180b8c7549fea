package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/allredmatt/server-based-job-site/internal/observability"
)

// Scraper counts job listings on a single site, one page at a time.
type Scraper struct {
	fetcher PageFetcher
	site    Site
	onValue func(Value)
}

type Option func(*Scraper)

// WithProgress registers fn to be called after each keyword is counted.
func WithProgress(fn func(Value)) Option {
	return func(s *Scraper) {
		s.onValue = fn
	}
}

func NewScraper(fetcher PageFetcher, site Site, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher: fetcher,
		site:    site,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gather fetches the baseline page once and then each keyword page in order.
// A page that cannot be fetched aborts the whole batch; a page whose count
// cannot be read contributes 0.
func (s *Scraper) Gather(ctx context.Context, titles []string) (Result, error) {
	start := time.Now()
	observability.IncScrapes()

	total, err := s.CountJobs(ctx, s.site.BaselineURL())
	if err != nil {
		return Result{}, fmt.Errorf("baseline: %w", err)
	}

	result := Result{
		Total:  total,
		Values: make([]Value, 0, len(titles)),
	}

	for _, title := range titles {
		n, err := s.CountJobs(ctx, s.site.KeywordURL(title))
		if err != nil {
			return Result{}, fmt.Errorf("keyword %q: %w", title, err)
		}
		v := Value{Label: title, Value: n}
		result.Values = append(result.Values, v)
		observability.IncKeywordsScraped()
		if s.onValue != nil {
			s.onValue(v)
		}
	}

	elapsed := time.Since(start)
	observability.ObserveScrapeDuration(elapsed.Seconds())
	slog.Info("scrape complete", "keywords", len(titles), "total", total, "duration", elapsed)
	return result, nil
}

// CountJobs returns the listing count shown on pageURL.
func (s *Scraper) CountJobs(ctx context.Context, pageURL string) (int, error) {
	body, err := s.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		observability.IncError(observability.ClassifyFetchError(err), "scraper")
		return 0, err
	}
	observability.IncPagesFetched()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		observability.IncError(observability.ErrorUnknown, "scraper")
		return 0, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	n, ok := ParseCount(doc, s.site.Selector)
	if !ok {
		observability.IncCountUnparsed()
		slog.Warn("listing count not found, using 0", "url", pageURL, "selector", s.site.Selector)
		return 0, nil
	}
	slog.Debug("listing count", "url", pageURL, "count", n)
	return n, nil
}
