// Package media turns a notice detail page into a set of display-ready
// image files. Resolution policy, first hit wins: attached document
// (rasterized page by page), largest inline image, content-region
// screenshot, full-page screenshot.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"campus-notice-bot/internal/browser"
	"campus-notice-bot/internal/config"
)

// ByteFetcher retrieves attachment bytes. Satisfied by fetcher.Fetcher's
// relaxed-TLS document path.
type ByteFetcher interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

type Resolver struct {
	cfg      config.MediaConfig
	fetcher  ByteFetcher
	renderer pageRenderer
	validate func([]byte) (int, error)
	logger   *slog.Logger
}

func NewResolver(cfg config.MediaConfig, fetcher ByteFetcher, logger *slog.Logger) *Resolver {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Resolver{
		cfg:      cfg,
		fetcher:  fetcher,
		renderer: fitzRenderer{},
		validate: ValidatePDF,
		logger:   logger.With("component", "media"),
	}
}

// Resolve materializes image assets for the notice currently loaded in
// page. An empty result with nil error means no media could be produced;
// the caller decides whether that skips the notice.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, noticeURL, noticeID string) ([]Asset, error) {
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read detail page: %w", err)
	}

	if docURL := FindDocumentURL(html, noticeURL); docURL != "" {
		assets := r.resolveDocument(ctx, page, docURL, noticeID)
		if len(assets) > 0 {
			return assets, nil
		}
		// The viewer fallback may have navigated away from the detail
		// page; restore it before trying the screenshot fallbacks.
		if err := page.Navigate(ctx, noticeURL); err != nil {
			r.logger.Warn("failed to restore detail page", "url", noticeURL, "error", err.Error())
		}
	}

	if asset, ok := r.resolveInlineImage(page, noticeID); ok {
		return []Asset{asset}, nil
	}

	asset, err := r.resolveScreenshot(page, noticeID)
	if err != nil {
		return nil, err
	}
	return []Asset{asset}, nil
}

// resolveDocument fetches and rasterizes an attached document. Any failure
// logs and returns nil so the caller falls through to the next policy step.
func (r *Resolver) resolveDocument(ctx context.Context, page browser.Page, docURL, noticeID string) []Asset {
	data, err := r.fetcher.FetchDocument(ctx, docURL)
	if err != nil {
		r.logger.Warn("attachment fetch failed", "url", docURL, "error", err.Error())
		return nil
	}

	if IsPDF(data) {
		pages, err := r.validate(data)
		if err != nil {
			r.logger.Warn("attachment failed PDF validation", "url", docURL, "error", err.Error())
			return nil
		}
		return r.rasterize(ctx, page, docURL, data, pages, noticeID)
	}

	// Boards also attach plain image files.
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		asset, err := r.saveImage(img, noticeID, 1, "attachment")
		if err != nil {
			r.logger.Warn("failed to save attachment image", "url", docURL, "error", err.Error())
			return nil
		}
		return []Asset{asset}
	}

	r.logger.Warn("attachment is neither PDF nor image", "url", docURL, "bytes", len(data))
	return nil
}

func (r *Resolver) rasterize(ctx context.Context, page browser.Page, docURL string, data []byte, pages int, noticeID string) []Asset {
	doc, err := r.renderer.Open(data)
	if err != nil {
		r.logger.Warn("renderer rejected document", "url", docURL, "error", err.Error())
		return nil
	}
	defer func() { _ = doc.Close() }()

	if n := doc.NumPages(); n < pages {
		pages = n
	}
	if pages > r.cfg.MaxPages {
		r.logger.Info("document truncated to page cap", "url", docURL, "pages", pages, "cap", r.cfg.MaxPages)
		pages = r.cfg.MaxPages
	}

	var assets []Asset
	for i := 0; i < pages; i++ {
		img, err := doc.RenderPage(i)
		if err != nil || img == nil {
			r.logger.Warn("page render failed, trying viewer capture",
				"url", docURL, "page", i+1, "error", errString(err))
			if asset, ok := r.viewerCapture(ctx, page, docURL, noticeID, i); ok {
				assets = append(assets, asset)
			}
			// Neither renderer nor viewer produced this page: skip it,
			// keep the rest of the document.
			continue
		}

		asset, err := r.saveImage(img, noticeID, i+1, "document")
		if err != nil {
			r.logger.Warn("failed to save rendered page", "url", docURL, "page", i+1, "error", err.Error())
			continue
		}
		assets = append(assets, asset)
	}
	return assets
}

// viewerCapture screenshots the document opened in the browser's built-in
// viewer, as a stand-in for one unrenderable page.
func (r *Resolver) viewerCapture(ctx context.Context, page browser.Page, docURL, noticeID string, pageIdx int) (Asset, bool) {
	viewerURL := fmt.Sprintf("%s#page=%d", docURL, pageIdx+1)
	if err := page.Navigate(ctx, viewerURL); err != nil {
		r.logger.Warn("viewer navigation failed", "url", viewerURL, "error", err.Error())
		return Asset{}, false
	}
	png, err := page.FullScreenshot()
	if err != nil {
		r.logger.Warn("viewer screenshot failed", "url", viewerURL, "error", err.Error())
		return Asset{}, false
	}
	asset, err := r.savePNG(png, noticeID, pageIdx+1, "viewer")
	if err != nil {
		r.logger.Warn("failed to save viewer capture", "url", viewerURL, "error", err.Error())
		return Asset{}, false
	}
	return asset, true
}

// resolveInlineImage picks the largest visible image above the icon
// threshold.
func (r *Resolver) resolveInlineImage(page browser.Page, noticeID string) (Asset, bool) {
	areas, err := page.ImageAreas()
	if err != nil {
		r.logger.Warn("failed to measure inline images", "error", err.Error())
		return Asset{}, false
	}

	best, bestArea := -1, 0.0
	minArea := float64(r.cfg.MinImageArea)
	for i, area := range areas {
		if area >= minArea && area > bestArea {
			best, bestArea = i, area
		}
	}
	if best == -1 {
		return Asset{}, false
	}

	png, err := page.ImageScreenshot(best)
	if err != nil {
		r.logger.Warn("inline image capture failed", "index", best, "error", err.Error())
		return Asset{}, false
	}
	asset, err := r.savePNG(png, noticeID, 1, "inline-image")
	if err != nil {
		r.logger.Warn("failed to save inline image", "error", err.Error())
		return Asset{}, false
	}
	return asset, true
}

// resolveScreenshot captures the first matching content region, or the
// whole page when no selector matches.
func (r *Resolver) resolveScreenshot(page browser.Page, noticeID string) (Asset, error) {
	for _, selector := range r.cfg.ContentSelectors {
		png, err := page.ElementScreenshot(selector)
		if err != nil {
			r.logger.Debug("content selector missed", "selector", selector, "error", err.Error())
			continue
		}
		asset, err := r.savePNG(png, noticeID, 1, "region")
		if err == nil {
			return asset, nil
		}
		r.logger.Warn("failed to save region capture", "selector", selector, "error", err.Error())
	}

	png, err := page.FullScreenshot()
	if err != nil {
		return Asset{}, fmt.Errorf("full page capture: %w", err)
	}
	return r.savePNG(png, noticeID, 1, "fullpage")
}

func (r *Resolver) savePNG(data []byte, noticeID string, pageNum int, origin string) (Asset, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Asset{}, fmt.Errorf("decode capture: %w", err)
	}
	return r.saveImage(img, noticeID, pageNum, origin)
}

// saveImage normalizes to the display box and writes a PNG under the temp
// dir. Fit preserves aspect ratio and never upscales.
func (r *Resolver) saveImage(img image.Image, noticeID string, pageNum int, origin string) (Asset, error) {
	fitted := imaging.Fit(img, r.cfg.MaxWidth, r.cfg.MaxHeight, imaging.Lanczos)

	if err := os.MkdirAll(r.cfg.TempDir, 0o755); err != nil {
		return Asset{}, fmt.Errorf("create temp dir: %w", err)
	}

	name := fmt.Sprintf("%s-p%02d-%s.png", shortID(noticeID), pageNum, uuid.NewString()[:8])
	path := filepath.Join(r.cfg.TempDir, name)
	if err := imaging.Save(fitted, path); err != nil {
		return Asset{}, fmt.Errorf("save asset: %w", err)
	}

	return Asset{Path: path, PageNum: pageNum, Origin: origin}, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func errString(err error) string {
	if err == nil {
		return "nil image"
	}
	return err.Error()
}
