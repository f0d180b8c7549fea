package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/pterm/pterm"

	"github.com/allredmatt/server-based-job-site/internal/client"
	"github.com/allredmatt/server-based-job-site/internal/config"
	"github.com/allredmatt/server-based-job-site/internal/scraper"
	"github.com/allredmatt/server-based-job-site/internal/stats"
)

const defaultKeywords = "Frontend,BackEnd,React,Node"

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Job stats server to query")
	local := flag.Bool("local", false, "Scrape directly instead of asking the server")
	keywords := flag.String("keywords", defaultKeywords, "Comma-separated list of keywords")
	timeout := flag.Duration("timeout", 0, "Overall timeout (0 waits until done)")
	configPath := flag.String("config", "configs/config.yaml", "Config file used with -local")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	titles := parseKeywords(*keywords)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		res scraper.Result
		err error
	)
	if *local {
		res, err = scrapeLocal(ctx, *configPath, titles)
	} else {
		res, err = scrapeRemote(ctx, *serverURL, titles)
	}
	if err != nil {
		pterm.Error.Printfln("Scrape failed: %v", err)
		os.Exit(1)
	}

	chart := stats.Derive(res)
	render(chart)
	pterm.Success.Println(summary(chart, time.Since(start)))
}

func scrapeRemote(ctx context.Context, serverURL string, titles []string) (scraper.Result, error) {
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Asking %s for %d keywords...", serverURL, len(titles)))
	res, err := client.New(serverURL, 0).JobStats(ctx, titles)
	if err != nil {
		spinner.Fail("Request failed")
		return scraper.Result{}, err
	}
	spinner.Success("Done")
	return res, nil
}

func scrapeLocal(ctx context.Context, configPath string, titles []string) (scraper.Result, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return scraper.Result{}, err
	}

	bar := pb.StartNew(len(titles))
	defer bar.Finish()

	s := scraper.NewFromConfig(cfg, scraper.WithProgress(func(scraper.Value) {
		bar.Increment()
	}))
	return s.Gather(ctx, titles)
}

// parseKeywords splits a comma list, dropping blanks.
func parseKeywords(raw string) []string {
	titles := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			titles = append(titles, part)
		}
	}
	return titles
}
