package rules

import (
	"fmt"
	"strings"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// Title length bounds in characters, per common SERP truncation limits.
const (
	titleMinLength = 30
	titleMaxLength = 60
)

// Meta description length bounds in characters.
const (
	metaDescMinLength = 70
	metaDescMaxLength = 155
)

// TitleDetector checks for missing, short, and long document titles.
type TitleDetector struct{}

// Name identifies the detector.
func (d *TitleDetector) Name() string { return "title" }

// Detect implements Detector.
func (d *TitleDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	title := strings.TrimSpace(page.Title)
	switch {
	case title == "":
		return []seo.Issue{newIssue(
			seo.IssueMissingTitle, page, seo.SeverityCritical, seo.CategoryMetaTags,
			"Missing page title",
			"The page has no <title> element. Search engines use the title as the primary headline in results.",
			"Add a unique, descriptive <title> of 30-60 characters.",
		)}
	case len(title) < titleMinLength:
		return []seo.Issue{newIssue(
			seo.IssueTitleTooShort, page, seo.SeverityMedium, seo.CategoryMetaTags,
			"Page title too short",
			fmt.Sprintf("The title is %d characters; titles under %d characters waste ranking signal.", len(title), titleMinLength),
			"Expand the title toward 30-60 characters with relevant keywords.",
		)}
	case len(title) > titleMaxLength:
		return []seo.Issue{newIssue(
			seo.IssueTitleTooLong, page, seo.SeverityLow, seo.CategoryMetaTags,
			"Page title too long",
			fmt.Sprintf("The title is %d characters and will be truncated in search results beyond %d.", len(title), titleMaxLength),
			"Shorten the title to at most 60 characters.",
		)}
	}
	return nil
}

// MetaDescriptionDetector checks for missing, short, and long meta descriptions.
type MetaDescriptionDetector struct{}

// Name identifies the detector.
func (d *MetaDescriptionDetector) Name() string { return "meta_description" }

// Detect implements Detector.
func (d *MetaDescriptionDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	desc := strings.TrimSpace(page.MetaDescription)
	switch {
	case desc == "":
		return []seo.Issue{newIssue(
			seo.IssueMissingMetaDescription, page, seo.SeverityHigh, seo.CategoryMetaTags,
			"Missing meta description",
			"The page has no meta description. Search engines will synthesize a snippet from arbitrary body text.",
			"Add a meta description of 70-155 characters summarizing the page.",
		)}
	case len(desc) < metaDescMinLength:
		return []seo.Issue{newIssue(
			seo.IssueMetaDescriptionTooShort, page, seo.SeverityMedium, seo.CategoryMetaTags,
			"Meta description too short",
			fmt.Sprintf("The meta description is %d characters; under %d it underuses the snippet space.", len(desc), metaDescMinLength),
			"Expand the meta description toward 70-155 characters.",
		)}
	case len(desc) > metaDescMaxLength:
		return []seo.Issue{newIssue(
			seo.IssueMetaDescriptionTooLong, page, seo.SeverityLow, seo.CategoryMetaTags,
			"Meta description too long",
			fmt.Sprintf("The meta description is %d characters and will be truncated beyond %d.", len(desc), metaDescMaxLength),
			"Shorten the meta description to at most 155 characters.",
		)}
	}
	return nil
}

// CanonicalDetector checks for a canonical link element.
type CanonicalDetector struct{}

// Name identifies the detector.
func (d *CanonicalDetector) Name() string { return "canonical" }

// Detect implements Detector.
func (d *CanonicalDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	if strings.TrimSpace(page.CanonicalURL) != "" {
		return nil
	}
	return []seo.Issue{newIssue(
		seo.IssueMissingCanonical, page, seo.SeverityMedium, seo.CategoryMetaTags,
		"Missing canonical link",
		"The page declares no canonical URL, which risks duplicate-content dilution.",
		`Add <link rel="canonical" href="..."> pointing at the preferred URL.`,
	)}
}

// ViewportDetector checks the mobile viewport meta tag.
type ViewportDetector struct{}

// Name identifies the detector.
func (d *ViewportDetector) Name() string { return "viewport" }

// Detect implements Detector.
func (d *ViewportDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	var viewport string
	found := false
	for _, m := range page.MetaTags {
		if strings.EqualFold(m.Name, "viewport") {
			viewport = m.Content
			found = true
			break
		}
	}
	if !found {
		return []seo.Issue{newIssue(
			seo.IssueMissingViewport, page, seo.SeverityHigh, seo.CategoryMobile,
			"Missing viewport meta tag",
			"Without a viewport meta tag the page renders at desktop width on mobile devices.",
			`Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
		)}
	}
	if !strings.Contains(strings.ToLower(viewport), "width=device-width") {
		return []seo.Issue{newIssue(
			seo.IssueViewportNotResponsive, page, seo.SeverityMedium, seo.CategoryMobile,
			"Viewport not responsive",
			"The viewport meta tag does not set width=device-width, so the layout will not adapt to the device.",
			"Include width=device-width in the viewport content.",
		)}
	}
	return nil
}
