package rules

import (
	"fmt"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// HeadingDetector checks H1 usage and heading hierarchy.
type HeadingDetector struct{}

// Name identifies the detector.
func (d *HeadingDetector) Name() string { return "headings" }

// Detect implements Detector.
func (d *HeadingDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	var issues []seo.Issue

	switch {
	case len(page.H1s) == 0:
		issues = append(issues, newIssue(
			seo.IssueMissingH1, page, seo.SeverityHigh, seo.CategoryStructure,
			"Missing H1 heading",
			"The page has no <h1> element, leaving its main topic undeclared.",
			"Add exactly one <h1> describing the page's primary topic.",
		))
	case len(page.H1s) > 1:
		issues = append(issues, newIssue(
			seo.IssueMultipleH1, page, seo.SeverityMedium, seo.CategoryStructure,
			"Multiple H1 headings",
			fmt.Sprintf("The page has %d <h1> elements; more than one dilutes the topical signal.", len(page.H1s)),
			"Keep a single <h1> and demote the rest to <h2>.",
		))
	}

	// Flag each heading that skips more than one level down from its
	// predecessor (e.g. h1 -> h3).
	prev := 0
	for _, h := range page.Headings {
		if prev > 0 && h.Level > prev+1 {
			issue := newIssue(
				seo.IssueHeadingHierarchySkip, page, seo.SeverityMedium, seo.CategoryStructure,
				"Heading hierarchy skip",
				fmt.Sprintf("Heading jumps from h%d to h%d, skipping a level.", prev, h.Level),
				fmt.Sprintf("Use h%d here, or restructure the surrounding headings.", prev+1),
			)
			issue.Element = fmt.Sprintf("h%d: %s", h.Level, truncate(h.Text, 60))
			issues = append(issues, issue)
		}
		prev = h.Level
	}

	return issues
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
