package scraper

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Site describes where listing counts live on the target job board.
type Site struct {
	BaseURL  string
	Location string
	Selector string
}

// BaselineURL is the unfiltered "all jobs" page for the location.
func (s Site) BaselineURL() string {
	return s.base() + "/jobs/" + s.Location
}

// KeywordURL is the search page for a single keyword in the location.
func (s Site) KeywordURL(keyword string) string {
	return s.base() + "/jobs/" + keywordSegment(keyword) + "/" + s.Location
}

func (s Site) base() string {
	return strings.TrimRight(s.BaseURL, "/")
}

func keywordSegment(keyword string) string {
	return url.PathEscape(norm.NFC.String(keyword))
}
