package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campus-notice-bot/internal/browser"
	"campus-notice-bot/internal/config"
	"campus-notice-bot/internal/dedup"
	"campus-notice-bot/internal/filter"
	"campus-notice-bot/internal/media"
	"campus-notice-bot/internal/noticeid"
	"campus-notice-bot/internal/publisher"
	"campus-notice-bot/internal/scraper"
)

type mediaResolver interface {
	Resolve(ctx context.Context, page browser.Page, noticeURL, noticeID string) ([]media.Asset, error)
}

type socialPublisher interface {
	Publish(ctx context.Context, message string, assets []media.Asset) (publisher.Outcome, error)
}

// robotsPolicy answers whether a page may be visited. Satisfied by
// fetcher.Fetcher's cached robots.txt lookup.
type robotsPolicy interface {
	RobotsAllowed(ctx context.Context, url string) (bool, error)
}

// Source pairs a configured board with its selector-driven scraper.
type Source struct {
	Name    string
	URL     string
	Scraper *scraper.Scraper
}

// Orchestrator drives the pipeline: one source at a time, one notice fully
// processed before the next begins. The page handle is shared across the
// whole run.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	page     browser.Page
	robots   robotsPolicy
	sources  []Source
	filter   *filter.Filter
	store    *dedup.Store
	resolver mediaResolver
	pub      socialPublisher
}

func NewOrchestrator(
	cfg *config.Config,
	logger *slog.Logger,
	page browser.Page,
	robots robotsPolicy,
	sources []Source,
	f *filter.Filter,
	store *dedup.Store,
	resolver mediaResolver,
	pub socialPublisher,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.With("component", "orchestrator"),
		page:     page,
		robots:   robots,
		sources:  sources,
		filter:   f,
		store:    store,
		resolver: resolver,
		pub:      pub,
	}
}

type RunStats struct {
	Scanned    int
	Filtered   int
	Duplicates int
	Posted     int
	Skipped    int
	Errors     int
}

// Run processes every source once. Per-notice failures are logged and
// counted, never fatal; a dedup persist failure or context cancellation
// aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	for _, src := range o.sources {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		o.logger.Info("Scanning source", "source", src.Name, "url", src.URL)

		if err := o.runSource(ctx, src, stats); err != nil {
			if errors.Is(err, dedup.ErrPersist) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			o.logger.Error("Source scan failed",
				"source", src.Name,
				"error", err.Error(),
			)
			stats.Errors++
		}
	}

	o.logger.Info("Run completed",
		"scanned", stats.Scanned,
		"filtered_out", stats.Filtered,
		"duplicates", stats.Duplicates,
		"posted", stats.Posted,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)

	return stats, nil
}

func (o *Orchestrator) runSource(ctx context.Context, src Source, stats *RunStats) error {
	allowed, err := o.robotsAllowed(ctx, src.URL)
	if err != nil {
		return fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return fmt.Errorf("listing disallowed by robots.txt: %s", src.URL)
	}

	if err := o.page.Navigate(ctx, src.URL); err != nil {
		return fmt.Errorf("load listing: %w", err)
	}
	html, err := o.page.HTML()
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}

	notices, err := src.Scraper.ParseListing(html, src.URL, src.Name)
	if err != nil {
		return fmt.Errorf("parse listing: %w", err)
	}

	o.logger.Info("Listing parsed", "source", src.Name, "notices", len(notices))
	stats.Scanned += len(notices)

	for _, notice := range notices {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !o.filter.ShouldPost(notice.Title) {
			o.logger.Debug("Notice filtered out", "source", src.Name, "title", notice.Title)
			stats.Filtered++
			continue
		}

		id := noticeid.FromTitleLink(notice.Title, notice.Link)
		if o.store.Contains(id) {
			o.logger.Debug("Notice already posted", "source", src.Name, "title", notice.Title)
			stats.Duplicates++
			continue
		}

		posted, err := o.processNotice(ctx, notice, id)
		if err != nil {
			// Losing the dedup record means double-posting next run;
			// nothing downstream can fix that, so stop here.
			if errors.Is(err, dedup.ErrPersist) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			o.logger.Error("Notice processing failed, continuing with next",
				"source", src.Name,
				"title", notice.Title,
				"error", err.Error(),
			)
			stats.Errors++
			continue
		}

		if !posted {
			stats.Skipped++
			continue
		}
		stats.Posted++

		// Platform rate limit: pause between posts.
		if err := sleepCtx(ctx, o.cfg.GetPostGap()); err != nil {
			return err
		}
	}

	return nil
}

// processNotice is the per-notice error boundary: any failure, including a
// panic in a dependency, comes back as an error and the run moves on.
func (o *Orchestrator) processNotice(ctx context.Context, notice *scraper.Notice, id string) (posted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing notice: %v", r)
		}
	}()

	allowed, robotsErr := o.robotsAllowed(ctx, notice.Link)
	if robotsErr != nil {
		return false, fmt.Errorf("robots check: %w", robotsErr)
	}
	if !allowed {
		o.logger.Info("Detail page disallowed by robots.txt, skipping",
			"title", notice.Title, "link", notice.Link)
		return false, nil
	}

	if err := o.page.Navigate(ctx, notice.Link); err != nil {
		return false, fmt.Errorf("load detail page: %w", err)
	}

	assets, err := o.resolver.Resolve(ctx, o.page, notice.Link, id)
	if err != nil {
		return false, fmt.Errorf("resolve media: %w", err)
	}

	if len(assets) == 0 && !o.cfg.Publish.AllowTextOnly {
		o.logger.Info("No media resolved, leaving notice for a future run",
			"title", notice.Title, "link", notice.Link)
		return false, nil
	}

	outcome, err := o.pub.Publish(ctx, buildMessage(notice), assets)
	if err != nil {
		return false, fmt.Errorf("publish: %w", err)
	}
	o.logger.Info("Publish attempted",
		"title", notice.Title,
		"outcome", outcome.String(),
		"assets", len(assets),
	)
	if !outcome.Posted() {
		return false, nil
	}

	// Persist the dedup record before anything else happens to this run.
	if err := o.store.Record(id); err != nil {
		return true, err
	}
	return true, nil
}

func (o *Orchestrator) robotsAllowed(ctx context.Context, url string) (bool, error) {
	if o.robots == nil {
		return true, nil
	}
	return o.robots.RobotsAllowed(ctx, url)
}

// RunLoop executes Run once in oneshot mode, or repeatedly on the
// configured interval until the context is cancelled. Cancellation during
// the idle sleep is a clean stop; a failed run returns its error.
func (o *Orchestrator) RunLoop(ctx context.Context) error {
	for {
		if _, err := o.Run(ctx); err != nil {
			return err
		}

		if o.cfg.Scheduler.Mode != "interval" {
			return nil
		}

		o.logger.Info("Sleeping until next run", "interval", o.cfg.GetSchedulerInterval().String())
		if err := sleepCtx(ctx, o.cfg.GetSchedulerInterval()); err != nil {
			return nil
		}
	}
}

func buildMessage(notice *scraper.Notice) string {
	parts := []string{notice.Title}
	if notice.DateRaw != "" {
		parts = append(parts, "Date: "+notice.DateRaw)
	}
	parts = append(parts, notice.Link)
	parts = append(parts, "#"+filter.NoticeType(notice.Title))
	return strings.Join(parts, "\n\n")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
