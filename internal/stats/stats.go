// Package stats turns a scrape result into the figures shown to the user.
package stats

import (
	"math"

	"github.com/allredmatt/server-based-job-site/internal/scraper"
)

// DerivedStat is one keyword's count together with its share of the total.
type DerivedStat struct {
	Label      string  `json:"label"`
	Value      int     `json:"value"`
	Percentage float64 `json:"percentage"`
}

type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Chart is everything needed to draw the bar chart and table.
type Chart struct {
	Total  int           `json:"total"`
	Bounds Bounds        `json:"bounds"`
	Values []DerivedStat `json:"values"`
}

// Derive computes percentages in input order. Bounds.Y is the largest value,
// or 0 when there are none.
func Derive(res scraper.Result) Chart {
	chart := Chart{
		Total:  res.Total,
		Bounds: Bounds{X: len(res.Values)},
		Values: make([]DerivedStat, 0, len(res.Values)),
	}
	for i, v := range res.Values {
		if i == 0 || v.Value > chart.Bounds.Y {
			chart.Bounds.Y = v.Value
		}
		chart.Values = append(chart.Values, DerivedStat{
			Label:      v.Label,
			Value:      v.Value,
			Percentage: Percentage(v.Value, res.Total),
		})
	}
	return chart
}

// Percentage returns value as a percentage of total rounded to two decimal
// places. A non-positive total yields 0.
func Percentage(value, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(value) * 100 / float64(total))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
