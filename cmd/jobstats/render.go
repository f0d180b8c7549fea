package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/allredmatt/server-based-job-site/internal/stats"
)

func render(chart stats.Chart) {
	pterm.DefaultSection.Printfln("Total jobs: %s", humanize.Comma(int64(chart.Total)))

	if len(chart.Values) == 0 {
		pterm.Info.Println("No keywords requested.")
		return
	}

	pterm.DefaultTable.WithHasHeader().WithData(tableData(chart)).Render()

	bars := make(pterm.Bars, 0, len(chart.Values))
	for _, v := range chart.Values {
		bars = append(bars, pterm.Bar{Label: v.Label, Value: v.Value})
	}
	pterm.DefaultBarChart.WithHorizontal().WithShowValue().WithBars(bars).Render()
}

func tableData(chart stats.Chart) pterm.TableData {
	data := pterm.TableData{{"Keyword", "Jobs", "Share"}}
	for _, v := range chart.Values {
		data = append(data, []string{
			v.Label,
			humanize.Comma(int64(v.Value)),
			fmt.Sprintf("%.2f%%", v.Percentage),
		})
	}
	return data
}

// summary reports the size of the baseline listing and how long the scrape took.
func summary(chart stats.Chart, elapsed time.Duration) string {
	return fmt.Sprintf("Scraped %s jobs in %.2f seconds", humanize.Comma(int64(chart.Total)), elapsed.Seconds())
}
