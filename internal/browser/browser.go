// Package browser owns the single headless Chrome instance used for the
// whole run. One page is reused for every navigation and released at exit
// so no browser process leaks across runs.
package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"campus-notice-bot/internal/config"
)

type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     config.BrowserConfig
	waitCfg *config.Config
	logger  *slog.Logger
}

// New launches Chrome and opens the reusable page.
func New(cfg *config.Config, logger *slog.Logger) (*Browser, error) {
	l := launcher.New().
		Bin(cfg.Browser.ChromePath).
		Headless(cfg.Browser.Headless).
		Set("disable-gpu").
		Set("no-sandbox")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &Browser{
		browser: b,
		page:    page,
		cfg:     cfg.Browser,
		waitCfg: cfg,
		logger:  logger.With("component", "browser"),
	}, nil
}

// Page returns the reusable page handle.
func (b *Browser) Page() Page {
	return &rodPage{b: b}
}

// Close releases the page and the browser process.
func (b *Browser) Close() {
	if b.page != nil {
		if err := b.page.Close(); err != nil {
			b.logger.Warn("failed to close page", "error", err.Error())
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.Warn("failed to close browser", "error", err.Error())
		}
	}
}

type rodPage struct {
	b *Browser
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.b.page.Context(ctx).Timeout(p.b.waitCfg.GetPageTimeout())
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Timeout(p.b.waitCfg.GetWaitLoadTimeout()).WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) HTML() (string, error) {
	return p.b.page.HTML()
}

func (p *rodPage) ElementScreenshot(selector string) ([]byte, error) {
	el, err := p.b.page.Timeout(p.b.waitCfg.GetPageTimeout()).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot %q: %w", selector, err)
	}
	return data, nil
}

func (p *rodPage) FullScreenshot() ([]byte, error) {
	data, err := p.b.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("full screenshot: %w", err)
	}
	return data, nil
}

func (p *rodPage) ImageAreas() ([]float64, error) {
	imgs, err := p.b.page.Elements("img")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	areas := make([]float64, 0, len(imgs))
	for _, img := range imgs {
		shape, err := img.Shape()
		if err != nil || len(shape.Quads) == 0 {
			areas = append(areas, 0)
			continue
		}
		box := shape.Box()
		areas = append(areas, box.Width*box.Height)
	}
	return areas, nil
}

func (p *rodPage) ImageScreenshot(index int) ([]byte, error) {
	imgs, err := p.b.page.Elements("img")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	if index < 0 || index >= len(imgs) {
		return nil, fmt.Errorf("image index %d out of range (%d images)", index, len(imgs))
	}
	data, err := imgs[index].Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("image screenshot: %w", err)
	}
	return data, nil
}
