package rules

import (
	"fmt"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// Alt text over this length reads like a caption, not alt text.
const altMaxLength = 100

// ImageDetector checks alt text and intrinsic dimensions on images.
type ImageDetector struct{}

// Name identifies the detector.
func (d *ImageDetector) Name() string { return "images" }

// Detect implements Detector.
func (d *ImageDetector) Detect(page *seo.CrawledPage) []seo.Issue {
	var issues []seo.Issue

	for _, img := range page.Images {
		if !img.HasAlt && !img.RolePresentation {
			issue := newIssue(
				seo.IssueImageMissingAlt, page, seo.SeverityMedium, seo.CategoryContent,
				"Image missing alt text",
				"The image has no alt attribute, making it invisible to screen readers and image search.",
				`Add a descriptive alt attribute, or role="presentation" for decorative images.`,
			)
			issue.Element = img.Src
			issues = append(issues, issue)
		}
		if img.HasAlt && len(img.Alt) > altMaxLength {
			issue := newIssue(
				seo.IssueImageAltTooLong, page, seo.SeverityLow, seo.CategoryContent,
				"Image alt text too long",
				fmt.Sprintf("The alt text is %d characters; over %d it stops being a concise description.", len(img.Alt), altMaxLength),
				"Shorten the alt text to a concise description.",
			)
			issue.Element = img.Src
			issues = append(issues, issue)
		}
		if !img.HasWidth || !img.HasHeight {
			issue := newIssue(
				seo.IssueImageMissingDimensions, page, seo.SeverityMedium, seo.CategoryPerformance,
				"Image missing width/height",
				"Images without explicit dimensions cause layout shift while the page loads.",
				"Add width and height attributes matching the image's intrinsic size.",
			)
			issue.Element = img.Src
			issues = append(issues, issue)
		}
	}

	return issues
}
