package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Scraper struct {
	selectors *Selectors
}

func NewScraper(selectors *Selectors) *Scraper {
	return &Scraper{
		selectors: selectors,
	}
}

// ParseListing parses a rendered listing page into notices. baseURL anchors
// relative links. Items without a title or link are skipped.
func (s *Scraper) ParseListing(html, baseURL, sourceName string) ([]*Notice, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	scope := doc.Selection
	if s.selectors.ListContainer != "" {
		if container := doc.Find(s.selectors.ListContainer); container.Length() > 0 {
			scope = container
		}
	}

	var notices []*Notice
	scope.Find(s.selectors.ItemSelector).Each(func(i int, sel *goquery.Selection) {
		notice := &Notice{Source: sourceName}

		notice.Title = trySelectorsText(sel, s.selectors.TitleSelectors)
		if notice.Title == "" {
			return
		}

		href := trySelectorsAttr(sel, s.selectors.LinkSelectors)
		if href == "" {
			return
		}
		notice.Link = ResolveURL(baseURL, href)
		if notice.Link == "" {
			return
		}

		notice.DateRaw = trySelectorsText(sel, s.selectors.DateSelectors)

		notices = append(notices, notice)
	})

	return notices, nil
}

func trySelectorsText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(s.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func trySelectorsAttr(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		found := s.Find(selector).First()
		if href, exists := found.Attr("href"); exists && href != "" {
			return href
		}
		if src, exists := found.Attr("src"); exists && src != "" {
			return src
		}
	}
	// The item itself may be the anchor.
	if href, exists := s.Attr("href"); exists && href != "" {
		return href
	}
	return ""
}

// ResolveURL resolves href against base and strips fragments.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if idx := strings.Index(href, "#"); idx > -1 {
		href = href[:idx]
		if href == "" {
			return ""
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
