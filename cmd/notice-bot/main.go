package main

import (
	"context"
	"errors"
	"log"
	"os"

	"campus-notice-bot/internal/app"
	"campus-notice-bot/internal/browser"
	"campus-notice-bot/internal/config"
	"campus-notice-bot/internal/dedup"
	"campus-notice-bot/internal/fetcher"
	"campus-notice-bot/internal/filter"
	"campus-notice-bot/internal/media"
	"campus-notice-bot/internal/observability"
	"campus-notice-bot/internal/publisher"
	"campus-notice-bot/internal/scraper"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability)

	sources := make([]app.Source, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		selectors, err := cfg.LoadSelectorsForSource(src)
		if err != nil {
			logger.Error("Failed to load selectors", "source", src.Name, "error", err.Error())
			os.Exit(1)
		}
		sources = append(sources, app.Source{
			Name:    src.Name,
			URL:     src.URL,
			Scraper: scraper.NewScraper(selectors),
		})
	}

	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()

	b, err := browser.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to start browser", "error", err.Error())
		os.Exit(1)
	}
	defer b.Close()

	f := fetcher.NewFetcher(cfg, logger)
	store := dedup.Load(cfg.Dedup.Path, cfg.Dedup.Cap, logger)
	resolver := media.NewResolver(cfg.Media, f, logger)
	pub := publisher.New(cfg.Publish, creds, cfg.GetUploadRetryDelay(), logger)
	relevance := filter.New(cfg.Filter.AllowKeywords, cfg.Filter.AllowPrograms, cfg.Filter.DenyKeywords)

	orchestrator := app.NewOrchestrator(cfg, logger, b.Page(), f, sources, relevance, store, resolver, pub)

	if err := orchestrator.RunLoop(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Run interrupted")
			return
		}
		logger.Error("Run failed", "error", err.Error())
		b.Close()
		os.Exit(1)
	}
}
