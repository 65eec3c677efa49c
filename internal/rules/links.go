package rules

import (
	"strings"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// Anchor texts that tell search engines nothing about the target.
var genericAnchorTexts = map[string]struct{}{
	"click here": {},
	"read more":  {},
	"learn more": {},
	"more":       {},
	"link":       {},
}

// LinkDetector checks anchor href quality, anchor text, and rel=noopener
// on external links.
type LinkDetector struct{}

// Name identifies the detector.
func (d *LinkDetector) Name() string { return "links" }

// Detect implements Detector.
func (d *LinkDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	var issues []seo.Issue

	for _, link := range page.Links {
		href := strings.TrimSpace(link.Href)
		if href == "" || href == "#" {
			issue := newIssue(
				seo.IssueLinkEmptyHref, page, seo.SeverityMedium, seo.CategoryLinks,
				"Link with empty href",
				"The anchor has an empty or hash-only href and leads nowhere.",
				"Point the link at a real URL or replace it with a button.",
			)
			issue.Element = anchorElement(link)
			issues = append(issues, issue)
			continue
		}

		if _, generic := genericAnchorTexts[strings.ToLower(strings.TrimSpace(link.Text))]; generic {
			issue := newIssue(
				seo.IssueLinkGenericText, page, seo.SeverityLow, seo.CategoryLinks,
				"Generic anchor text",
				"Anchor text like \"click here\" carries no relevance signal for the link target.",
				"Rewrite the anchor text to describe the destination.",
			)
			issue.Element = anchorElement(link)
			issues = append(issues, issue)
		}

		if link.External && !strings.Contains(strings.ToLower(link.Rel), "noopener") {
			issue := newIssue(
				seo.IssueLinkMissingNoopener, page, seo.SeverityLow, seo.CategoryLinks,
				"External link without rel=noopener",
				"External links without rel=noopener expose the opener window to the target page.",
				`Add rel="noopener" (or rel="noopener noreferrer") to external links.`,
			)
			issue.Element = anchorElement(link)
			issues = append(issues, issue)
		}
	}

	return issues
}

func anchorElement(link seo.Link) string {
	text := link.Text
	if text == "" {
		text = "(no text)"
	}
	return "a[href=" + link.Href + "] " + truncate(text, 40)
}
