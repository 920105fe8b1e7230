package media

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// pageRenderer opens document bytes for page-by-page rasterization. The
// production implementation wraps MuPDF; tests substitute a fake to drive
// the per-page fallback policy.
type pageRenderer interface {
	Open(data []byte) (renderedDocument, error)
}

type renderedDocument interface {
	NumPages() int
	// RenderPage rasterizes one zero-based page.
	RenderPage(n int) (image.Image, error)
	Close() error
}

type fitzRenderer struct{}

func (fitzRenderer) Open(data []byte) (renderedDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) NumPages() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) RenderPage(n int) (image.Image, error) {
	img, err := d.doc.Image(n)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", n+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
