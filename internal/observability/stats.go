package observability

import (
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	ScrapesTotal      uint64            `json:"scrapes_total"`
	PagesFetched      uint64            `json:"pages_fetched"`
	KeywordsScraped   uint64            `json:"keywords_scraped"`
	CountsUnparsed    uint64            `json:"counts_unparsed"`
	HistoryWrites     uint64            `json:"history_writes"`
	ErrorsTotal       uint64            `json:"errors_total"`
	ScrapeSecondsAvg  float64           `json:"scrape_seconds_avg"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	scrapesTotal    uint64
	pagesFetched    uint64
	keywordsScraped uint64
	countsUnparsed  uint64
	historyWrites   uint64
	errorsTotal     uint64

	scrapeCount uint64
	scrapeNanos uint64

	statsMu           sync.Mutex
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

func IncPagesFetched() {
	atomic.AddUint64(&pagesFetched, 1)
}

func IncKeywordsScraped() {
	atomic.AddUint64(&keywordsScraped, 1)
}

// IncCountUnparsed records a page whose count was coerced to zero because
// the element was missing or not numeric.
func IncCountUnparsed() {
	atomic.AddUint64(&countsUnparsed, 1)
}

func IncHistoryWrite() {
	atomic.AddUint64(&historyWrites, 1)
}

// IncScrapes counts a scrape batch as it starts, whether or not it succeeds.
func IncScrapes() {
	atomic.AddUint64(&scrapesTotal, 1)
}

// ObserveScrapeDuration records the run time of a completed batch.
func ObserveScrapeDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&scrapeCount, 1)
	atomic.AddUint64(&scrapeNanos, uint64(seconds*1e9))
}

func IncError(errType, component string) {
	if errType == "" {
		errType = ErrorUnknown
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&scrapeCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&scrapeNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		ScrapesTotal:      atomic.LoadUint64(&scrapesTotal),
		PagesFetched:      atomic.LoadUint64(&pagesFetched),
		KeywordsScraped:   atomic.LoadUint64(&keywordsScraped),
		CountsUnparsed:    atomic.LoadUint64(&countsUnparsed),
		HistoryWrites:     atomic.LoadUint64(&historyWrites),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		ScrapeSecondsAvg:  avg,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
