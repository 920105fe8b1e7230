package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-notice-bot/internal/config"
)

// fakePage scripts the browser interactions the resolver performs.
type fakePage struct {
	html           string
	navigations    []string
	fullScreenshot []byte
	elementShots   map[string][]byte
	imageAreas     []float64
	imageShots     map[int][]byte
	navigateErr    error
	fullShotErr    error
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigations = append(p.navigations, url)
	return p.navigateErr
}

func (p *fakePage) HTML() (string, error) { return p.html, nil }

func (p *fakePage) ElementScreenshot(selector string) ([]byte, error) {
	if data, ok := p.elementShots[selector]; ok {
		return data, nil
	}
	return nil, errors.New("no such element")
}

func (p *fakePage) FullScreenshot() ([]byte, error) {
	if p.fullShotErr != nil {
		return nil, p.fullShotErr
	}
	return p.fullScreenshot, nil
}

func (p *fakePage) ImageAreas() ([]float64, error) { return p.imageAreas, nil }

func (p *fakePage) ImageScreenshot(index int) ([]byte, error) {
	if data, ok := p.imageShots[index]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no image at index %d", index)
}

type fakeFetcher struct {
	data map[string][]byte
	err  error
}

func (f *fakeFetcher) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if data, ok := f.data[url]; ok {
		return data, nil
	}
	return nil, errors.New("not found")
}

// fakeRenderer renders solid images, failing the pages listed in failPages.
type fakeRenderer struct {
	pages     int
	failPages map[int]bool
	openErr   error
}

func (f *fakeRenderer) Open(data []byte) (renderedDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f, nil
}

func (f *fakeRenderer) NumPages() int { return f.pages }

func (f *fakeRenderer) RenderPage(n int) (image.Image, error) {
	if f.failPages[n] {
		return nil, errors.New("render failure")
	}
	return image.NewRGBA(image.Rect(0, 0, 200, 300)), nil
}

func (f *fakeRenderer) Close() error { return nil }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newTestResolver(t *testing.T, fetcher ByteFetcher, renderer pageRenderer, pdfPages int) *Resolver {
	t.Helper()
	cfg := config.MediaConfig{
		TempDir:          t.TempDir(),
		MaxPages:         10,
		MaxWidth:         640,
		MaxHeight:        905,
		MinImageArea:     10000,
		ContentSelectors: []string{"div.notice-detail", "article"},
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := NewResolver(cfg, fetcher, logger)
	r.renderer = renderer
	r.validate = func(data []byte) (int, error) {
		if !IsPDF(data) {
			return 0, errors.New("not a pdf")
		}
		return pdfPages, nil
	}
	return r
}

const detailWithDoc = `<html><body><a href="/files/routine.pdf">Download</a></body></html>`
const detailPlain = `<html><body><p>Nothing attached.</p></body></html>`

func TestResolveDocumentPages(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://exam.edu.np/files/routine.pdf": []byte("%PDF-1.4 test"),
	}}
	r := newTestResolver(t, fetcher, &fakeRenderer{pages: 3}, 3)
	page := &fakePage{html: detailWithDoc}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/1", "abc123")
	require.NoError(t, err)
	require.Len(t, assets, 3)

	for i, asset := range assets {
		assert.Equal(t, i+1, asset.PageNum, "page order preserved")
		assert.Equal(t, "document", asset.Origin)
		assert.FileExists(t, asset.Path)
	}
}

func TestResolveDocumentRespectsPageCap(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://exam.edu.np/files/routine.pdf": []byte("%PDF-1.4 test"),
	}}
	r := newTestResolver(t, fetcher, &fakeRenderer{pages: 25}, 25)
	page := &fakePage{html: detailWithDoc}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/1", "abc123")
	require.NoError(t, err)
	assert.Len(t, assets, 10)
	assert.Equal(t, 10, assets[9].PageNum)
}

func TestResolveDocumentPageFailureFallsBackToViewer(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://exam.edu.np/files/routine.pdf": []byte("%PDF-1.4 test"),
	}}
	renderer := &fakeRenderer{pages: 3, failPages: map[int]bool{1: true}}
	r := newTestResolver(t, fetcher, renderer, 3)
	page := &fakePage{html: detailWithDoc, fullScreenshot: pngBytes(t, 800, 600)}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/1", "abc123")
	require.NoError(t, err)
	require.Len(t, assets, 3)

	assert.Equal(t, "document", assets[0].Origin)
	assert.Equal(t, "viewer", assets[1].Origin)
	assert.Equal(t, 2, assets[1].PageNum)
	assert.Equal(t, "document", assets[2].Origin)
	assert.Contains(t, page.navigations, "https://exam.edu.np/files/routine.pdf#page=2")
}

func TestResolveDocumentPageSkippedWhenViewerAlsoFails(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://exam.edu.np/files/routine.pdf": []byte("%PDF-1.4 test"),
	}}
	renderer := &fakeRenderer{pages: 3, failPages: map[int]bool{1: true}}
	r := newTestResolver(t, fetcher, renderer, 3)
	page := &fakePage{html: detailWithDoc, fullShotErr: errors.New("viewer broken")}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/1", "abc123")
	require.NoError(t, err)
	require.Len(t, assets, 2, "bad page dropped, document kept")
	assert.Equal(t, 1, assets[0].PageNum)
	assert.Equal(t, 3, assets[1].PageNum)
}

func TestResolveFakeDocumentFallsThroughToImage(t *testing.T) {
	// Server answers the .pdf URL with an HTML error page.
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://exam.edu.np/files/routine.pdf": []byte("<html>500</html>"),
	}}
	r := newTestResolver(t, fetcher, &fakeRenderer{}, 0)
	page := &fakePage{
		html:       detailWithDoc,
		imageAreas: []float64{500, 250000, 90000},
		imageShots: map[int][]byte{1: pngBytes(t, 500, 500)},
	}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/1", "abc123")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "inline-image", assets[0].Origin)
}

func TestResolveImageAttachment(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://exam.edu.np/files/scan.jpg": pngBytes(t, 900, 1200),
	}}
	r := newTestResolver(t, fetcher, &fakeRenderer{}, 0)
	page := &fakePage{html: `<a href="/files/scan.jpg">scan</a>`}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/1", "abc123")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "attachment", assets[0].Origin)
}

func TestResolveInlineImagePicksLargestAboveThreshold(t *testing.T) {
	r := newTestResolver(t, &fakeFetcher{}, &fakeRenderer{}, 0)
	page := &fakePage{
		html: detailPlain,
		// Icons below the 10000 threshold plus two candidates.
		imageAreas: []float64{1024, 120000, 300000, 2048},
		imageShots: map[int][]byte{2: pngBytes(t, 600, 500)},
	}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/2", "def456")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "inline-image", assets[0].Origin)
}

func TestResolveRegionScreenshotFallback(t *testing.T) {
	r := newTestResolver(t, &fakeFetcher{}, &fakeRenderer{}, 0)
	page := &fakePage{
		html:         detailPlain,
		imageAreas:   []float64{100, 200}, // icons only
		elementShots: map[string][]byte{"article": pngBytes(t, 700, 900)},
	}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/3", "ghi789")
	require.NoError(t, err)
	require.Len(t, assets, 1, "exactly one asset from the screenshot fallback")
	assert.Equal(t, "region", assets[0].Origin)
}

func TestResolveFullPageFallback(t *testing.T) {
	r := newTestResolver(t, &fakeFetcher{}, &fakeRenderer{}, 0)
	page := &fakePage{
		html:           detailPlain,
		fullScreenshot: pngBytes(t, 1200, 2000),
	}

	assets, err := r.Resolve(context.Background(), page, "https://exam.edu.np/notice/4", "jkl012")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "fullpage", assets[0].Origin)
}

func TestSaveImageBoundsSize(t *testing.T) {
	r := newTestResolver(t, &fakeFetcher{}, &fakeRenderer{}, 0)

	asset, err := r.saveImage(image.NewRGBA(image.Rect(0, 0, 3000, 1500)), "abc", 1, "document")
	require.NoError(t, err)

	f, err := os.Open(asset.Path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	cfgImg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.LessOrEqual(t, cfgImg.Width, 640)
	assert.LessOrEqual(t, cfgImg.Height, 905)
	// Aspect ratio preserved: 3000x1500 fitted into 640 wide is 640x320.
	assert.Equal(t, 640, cfgImg.Width)
	assert.Equal(t, 320, cfgImg.Height)
}

func TestCleanupRemovesFiles(t *testing.T) {
	r := newTestResolver(t, &fakeFetcher{}, &fakeRenderer{}, 0)
	asset, err := r.saveImage(image.NewRGBA(image.Rect(0, 0, 100, 100)), "abc", 1, "document")
	require.NoError(t, err)
	require.FileExists(t, asset.Path)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	Cleanup([]Asset{asset, {Path: "/nonexistent/file.png"}}, logger)

	assert.NoFileExists(t, asset.Path)
}
