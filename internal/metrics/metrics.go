// Package metrics exposes Prometheus counters for the audit pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CrawlsStarted tracks how many crawl runs were kicked off.
	CrawlsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_crawls_started_total",
		Help: "The total number of crawl runs started.",
	})
	// PagesCrawled tracks pages successfully fetched and parsed.
	PagesCrawled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_pages_crawled_total",
		Help: "The total number of pages successfully crawled.",
	})
	// FetchesTotal tracks HTTP fetches dispatched.
	FetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_fetches_total",
		Help: "The total number of HTTP fetches dispatched.",
	})
	// FetchErrorsTotal tracks fetches that failed at the network or parse level.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_fetch_errors_total",
		Help: "The total number of failed fetches.",
	})
	// IssuesDetected tracks issues emitted by the rule engine.
	IssuesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_issues_detected_total",
		Help: "The total number of SEO issues detected.",
	})
	// FixAttempts tracks auto-fix attempts.
	FixAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_fix_attempts_total",
		Help: "The total number of auto-fix attempts.",
	})
	// FixesSucceeded tracks auto-fixes that reached fixed status.
	FixesSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seoaudit_fixes_succeeded_total",
		Help: "The total number of issues successfully auto-fixed.",
	})
)
