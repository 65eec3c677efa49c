package rules

import "github.com/crawlworks/seoaudit/internal/seo"

// PerformanceDetector is an extension point for a future Lighthouse-style
// integration. It currently emits nothing.
type PerformanceDetector struct{}

// Name identifies the detector.
func (d *PerformanceDetector) Name() string { return "performance" }

// Detect implements Detector.
func (d *PerformanceDetector) Detect(_ *seo.CrawledPage) []seo.Issue {
	return nil
}
