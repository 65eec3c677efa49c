package rules

import "github.com/crawlworks/seoaudit/internal/seo"

// StructuredDataDetector checks for JSON-LD structured data.
type StructuredDataDetector struct{}

// Name identifies the detector.
func (d *StructuredDataDetector) Name() string { return "structured_data" }

// Detect implements Detector.
func (d *StructuredDataDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	if page.HasJSONLD {
		return nil
	}
	return []seo.Issue{newIssue(
		seo.IssueMissingStructuredData, page, seo.SeverityMedium, seo.CategorySchema,
		"No structured data",
		"The page contains no application/ld+json script, so it is ineligible for rich results.",
		"Add a JSON-LD block describing the page (Organization, Article, Product, etc.).",
	)}
}
