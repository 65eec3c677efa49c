// Package rules detects SEO issues on parsed pages. Each detector is an
// independent check; the engine concatenates their output per page.
package rules

import (
	"time"

	"github.com/crawlworks/seoaudit/internal/metrics"
	"github.com/crawlworks/seoaudit/internal/seo"
)

// Detector inspects one parsed page and emits zero or more issues.
type Detector interface {
	Name() string
	Detect(page *seo.CrawledPage) []seo.Issue
}

// Engine runs a fixed set of detectors against a page.
type Engine struct {
	detectors []Detector
}

// NewEngine constructs an Engine with the full detector set.
func NewEngine() *Engine {
	return &Engine{detectors: []Detector{
		&TitleDetector{},
		&MetaDescriptionDetector{},
		&CanonicalDetector{},
		&ViewportDetector{},
		&HeadingDetector{},
		&ImageDetector{},
		&LinkDetector{},
		&StructuredDataDetector{},
		&PerformanceDetector{},
	}}
}

// Run executes all detectors against the page and returns the combined
// issue list. Detector order is stable, so output order is too.
func (e *Engine) Run(page *seo.CrawledPage) []seo.Issue {
	var issues []seo.Issue
	for _, d := range e.detectors {
		issues = append(issues, d.Detect(page)...)
	}
	metrics.IssuesDetected.Add(float64(len(issues)))
	return issues
}

// newIssue fills in the fields every detector sets the same way.
func newIssue(t seo.IssueType, page *seo.CrawledPage, severity seo.Severity, category seo.Category, title, description, fix string) seo.Issue {
	return seo.Issue{
		ID:             seo.NewIssueID(t),
		Type:           t,
		Title:          title,
		Description:    description,
		Severity:       severity,
		Category:       category,
		URL:            page.URL,
		RecommendedFix: fix,
		FixStatus:      seo.FixStatusPending,
		DetectedAt:     time.Now().UTC(),
	}
}
