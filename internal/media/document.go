package media

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"campus-notice-bot/internal/scraper"
)

var attachmentExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

var onclickURLPattern = regexp.MustCompile(`['"]([^'"]+\.(?:pdf|jpe?g|png)(?:\?[^'"]*)?)['"]`)

// FindDocumentURL scans a notice detail page for an attached document:
// a direct anchor, an inline viewer embed, or a download control whose
// click handler encodes the URL. Returns "" when the page has none.
func FindDocumentURL(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	// Direct anchors first, they are the common case on these boards.
	var found string
	doc.Find("a[href]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if hasAttachmentExtension(href) {
			found = scraper.ResolveURL(baseURL, href)
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	// Inline embeds: iframes and embeds pointing at the document, possibly
	// through a viewer wrapper (gview-style ?url= parameter).
	doc.Find("iframe[src], embed[src], object[data]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok {
			src, _ = sel.Attr("data")
		}
		if src == "" {
			return true
		}
		if wrapped := unwrapViewerURL(src); wrapped != "" {
			found = scraper.ResolveURL(baseURL, wrapped)
			return false
		}
		if hasAttachmentExtension(src) {
			found = scraper.ResolveURL(baseURL, src)
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	// Download/view buttons with the URL baked into the click handler.
	doc.Find("[onclick]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		onclick, _ := sel.Attr("onclick")
		if match := onclickURLPattern.FindStringSubmatch(onclick); match != nil {
			found = scraper.ResolveURL(baseURL, match[1])
			return false
		}
		return true
	})

	return found
}

// hasAttachmentExtension checks the URL path extension, ignoring query
// strings.
func hasAttachmentExtension(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range attachmentExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// unwrapViewerURL extracts the target document from viewer-style embeds
// such as docs.google.com/gview?embedded=true&url=<doc>.
func unwrapViewerURL(src string) string {
	parsed, err := url.Parse(src)
	if err != nil {
		return ""
	}
	target := parsed.Query().Get("url")
	if target == "" || !hasAttachmentExtension(target) {
		return ""
	}
	return target
}

// IsPDF checks the magic bytes. Broken servers on these boards routinely
// answer a .pdf URL with an HTML error page, so URL shape proves nothing.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// ValidatePDF parses the document structure and returns the page count.
// Catches truncated downloads and fake documents that pass the magic-byte
// check.
func ValidatePDF(data []byte) (int, error) {
	if !IsPDF(data) {
		return 0, fmt.Errorf("not a PDF: missing magic bytes")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("unparsable PDF: %w", err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pages, nil
}
