package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// ParsePage extracts the audit-relevant structure from raw HTML.
func ParsePage(pageURL string, statusCode int, contentType string, body []byte) (*seo.CrawledPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	page := &seo.CrawledPage{
		URL:         pageURL,
		StatusCode:  statusCode,
		ContentType: contentType,
		HTML:        string(body),
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, hasName := s.Attr("name")
		content, hasContent := s.Attr("content")
		if !hasName || !hasContent {
			return
		}
		page.MetaTags = append(page.MetaTags, seo.MetaTag{Name: name, Content: content})
		if strings.EqualFold(name, "description") {
			page.MetaDescription = strings.TrimSpace(content)
		}
	})

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		page.CanonicalURL = strings.TrimSpace(href)
	}

	// A single combined selector yields headings in document order, which
	// the hierarchy detector depends on.
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(s.Nodes[0].Data[1] - '0')
		text := strings.TrimSpace(s.Text())
		page.Headings = append(page.Headings, seo.Heading{Level: level, Text: text})
		if level == 1 {
			page.H1s = append(page.H1s, text)
		}
	})

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		rel, _ := s.Attr("rel")
		link := seo.Link{
			Href: strings.TrimSpace(href),
			Text: strings.TrimSpace(s.Text()),
			Rel:  rel,
		}
		if resolved, external, ok := resolveLink(base, link.Href); ok {
			link.Resolved = resolved
			link.External = external
		}
		page.Links = append(page.Links, link)
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, hasAlt := s.Attr("alt")
		_, hasWidth := s.Attr("width")
		_, hasHeight := s.Attr("height")
		role, _ := s.Attr("role")
		page.Images = append(page.Images, seo.Image{
			Src:              src,
			Alt:              alt,
			HasAlt:           hasAlt,
			HasWidth:         hasWidth,
			HasHeight:        hasHeight,
			RolePresentation: strings.EqualFold(role, "presentation"),
		})
	})

	page.WordCount = len(strings.Fields(doc.Find("body").Text()))
	page.HasJSONLD = doc.Find(`script[type="application/ld+json"]`).Length() > 0

	return page, nil
}

// resolveLink resolves href against the page URL and reports whether the
// target is external (different scheme+host origin).
func resolveLink(base *url.URL, href string) (resolved string, external bool, ok bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false, false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false, false
	}
	external = !strings.EqualFold(abs.Host, base.Host)
	return abs.String(), external, true
}

// SameOriginLinks returns the resolved same-origin link targets of a page.
func SameOriginLinks(page *seo.CrawledPage) []string {
	var out []string
	for _, l := range page.Links {
		if l.Resolved != "" && !l.External {
			out = append(out, l.Resolved)
		}
	}
	return out
}
