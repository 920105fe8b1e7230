package browser

import "context"

// Page is the slice of browser capability the pipeline actually uses.
// The media resolver's policy logic is written against this interface so
// it can run against a fake in tests.
type Page interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// HTML returns the rendered document markup.
	HTML() (string, error)
	// ElementScreenshot captures the first element matching the selector
	// as PNG bytes.
	ElementScreenshot(selector string) ([]byte, error)
	// FullScreenshot captures the entire page as PNG bytes.
	FullScreenshot() ([]byte, error)
	// ImageAreas returns the rendered pixel area of every <img> on the
	// page, in document order.
	ImageAreas() ([]float64, error)
	// ImageScreenshot captures the nth <img> (by ImageAreas index) as PNG
	// bytes.
	ImageScreenshot(index int) ([]byte, error)
}
