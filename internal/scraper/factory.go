package scraper

import (
	"github.com/allredmatt/server-based-job-site/internal/config"
	"github.com/allredmatt/server-based-job-site/internal/httpx"
)

// NewFetcher builds the page fetcher selected by cfg.FetchMode.
func NewFetcher(cfg *config.Config) PageFetcher {
	opts := httpx.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
		Attempts:  cfg.FetchAttempts,
	}
	if cfg.FetchMode == config.FetchModePolite {
		return httpx.NewPoliteClient(opts)
	}
	return httpx.NewCollyFetcher(opts)
}

// NewFromConfig wires a Scraper for the site described by cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) *Scraper {
	site := Site{
		BaseURL:  cfg.BaseURL,
		Location: cfg.Location,
		Selector: cfg.CountSelector,
	}
	return NewScraper(NewFetcher(cfg), site, opts...)
}
