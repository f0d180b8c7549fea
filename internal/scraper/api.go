package scraper

import (
	"context"
)

// Value is the listing count for one keyword.
type Value struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Result is the outcome of one scrape batch. Values keeps the order of the
// requested keywords.
type Result struct {
	Total  int     `json:"total"`
	Values []Value `json:"values"`
}

// PageFetcher retrieves the raw HTML of a page. Implementations return an
// error when the page cannot be retrieved (transport failure or HTTP >= 400).
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) ([]byte, error)
}
