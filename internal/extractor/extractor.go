// internal/extractor/extractor.go

// Package extractor turns a clinic's root URL into one text blob: the
// rendered text of the root page plus a bounded number of relevant
// same-domain sub-pages (contact, about, new-patient and similar).
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"clinic-scout/internal/common/logger"
)

// subpageKeywords flags anchors likely to carry patient-acceptance info,
// matched against both the target URL and the visible anchor text.
var subpageKeywords = []string{
	"contact", "about", "doctors", "team", "new-patient",
	"register", "physician", "staff", "services",
}

// nonContentSelectors lists elements stripped before extracting page text.
const nonContentSelectors = "script, style, noscript"

// Extractor fetches and concatenates the text of a clinic's relevant pages.
type Extractor struct {
	fetcher        Fetcher
	logger         logger.Logger
	pageTimeout    time.Duration
	subpageTimeout time.Duration
	maxSubpages    int
}

func New(fetcher Fetcher, log logger.Logger, pageTimeout, subpageTimeout time.Duration, maxSubpages int) *Extractor {
	return &Extractor{
		fetcher:        fetcher,
		logger:         log.WithFields(map[string]interface{}{"component": "extractor"}),
		pageTimeout:    pageTimeout,
		subpageTimeout: subpageTimeout,
		maxSubpages:    maxSubpages,
	}
}

// Extract returns the concatenated rendered text of the root page and up to
// maxSubpages relevant sub-pages, each section prefixed with a page marker.
// A root fetch failure is returned as an error and the clinic should be
// skipped for the cycle; sub-page failures only drop that sub-page's text.
func (e *Extractor) Extract(ctx context.Context, rootURL string) (string, error) {
	html, err := e.fetcher.FetchRendered(ctx, rootURL, e.pageTimeout)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("root page parse failed, using raw text", map[string]interface{}{
			"url": rootURL, "error": err.Error(),
		})
		return pageSection(rootURL, html), nil
	}

	sections := []string{pageSection(rootURL, bodyText(doc))}

	candidates := e.relevantLinks(doc, rootURL)
	if len(candidates) > 0 {
		sections = append(sections, e.fetchSubpages(ctx, candidates)...)
	}

	return strings.Join(sections, "\n\n"), nil
}

// relevantLinks collects deduplicated same-domain anchors whose target URL
// or visible text matches the keyword set, capped at maxSubpages.
func (e *Extractor) relevantLinks(doc *goquery.Document, rootURL string) []string {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}

	seen := map[string]bool{normalizeURL(root): true}
	var links []string

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "#") {
			return true
		}

		target, err := root.Parse(href)
		if err != nil || target.Hostname() != root.Hostname() {
			return true
		}

		if !matchesKeyword(target.String(), s.Text()) {
			return true
		}

		key := normalizeURL(target)
		if seen[key] {
			return true
		}
		seen[key] = true
		links = append(links, target.String())

		return len(links) < e.maxSubpages
	})

	return links
}

// fetchSubpages fans out over the candidate URLs concurrently and fans in,
// keeping only the pages that fetched successfully, in candidate order.
func (e *Extractor) fetchSubpages(ctx context.Context, urls []string) []string {
	results := make([]string, len(urls))
	var wg sync.WaitGroup

	for i, pageURL := range urls {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()

			html, err := e.fetcher.FetchRendered(ctx, pageURL, e.subpageTimeout)
			if err != nil {
				e.logger.Warn("sub-page fetch dropped", map[string]interface{}{
					"url": pageURL, "error": err.Error(),
				})
				return
			}

			text := html
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
				text = bodyText(doc)
			}
			results[i] = pageSection(pageURL, text)
		}(i, pageURL)
	}
	wg.Wait()

	var sections []string
	for _, r := range results {
		if r != "" {
			sections = append(sections, r)
		}
	}
	return sections
}

func matchesKeyword(targetURL, anchorText string) bool {
	u := strings.ToLower(targetURL)
	t := strings.ToLower(anchorText)
	for _, kw := range subpageKeywords {
		if strings.Contains(u, kw) || strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// normalizeURL strips the fragment and trailing slash for deduplication.
func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return strings.TrimSuffix(c.String(), "/")
}

// bodyText extracts the visible text of the document with non-content
// elements removed.
func bodyText(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return strings.TrimSpace(doc.Text())
	}
	body.Find(nonContentSelectors).Remove()
	return strings.TrimSpace(body.Text())
}

func pageSection(pageURL, text string) string {
	return fmt.Sprintf("=== PAGE: %s ===\n%s", pageURL, text)
}
