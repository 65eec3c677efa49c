// Package report orchestrates crawl runs and aggregates their results
// into persisted reports.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/crawl"
	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store"
)

// SiteCrawler walks a site from a seed URL. Satisfied by crawl.Crawler.
type SiteCrawler interface {
	Crawl(ctx context.Context, seedURL string, maxPages int) (crawl.Result, error)
}

// RuleRunner detects issues on one parsed page. Satisfied by rules.Engine.
type RuleRunner interface {
	Run(page *seo.CrawledPage) []seo.Issue
}

// Researcher produces keyword rankings and content suggestions for a set
// of seed phrases. Optional; a nil Researcher skips keyword enrichment.
type Researcher interface {
	Research(ctx context.Context, seeds []string) ([]seo.KeywordRanking, []seo.ContentSuggestion, error)
}

// Config bounds a Runner's background work.
type Config struct {
	CrawlTimeout time.Duration
	DefaultPages int
}

// Runner owns the crawl-audit-report pipeline. Start returns a report id
// immediately; the crawl completes the report in the background.
type Runner struct {
	store      store.Store
	crawler    SiteCrawler
	rules      RuleRunner
	researcher Researcher
	logger     *zap.Logger
	cfg        Config
}

// NewRunner constructs a Runner. researcher may be nil.
func NewRunner(st store.Store, crawler SiteCrawler, rules RuleRunner, researcher Researcher, logger *zap.Logger, cfg Config) *Runner {
	if cfg.CrawlTimeout <= 0 {
		cfg.CrawlTimeout = 10 * time.Minute
	}
	if cfg.DefaultPages <= 0 {
		cfg.DefaultPages = 10
	}
	return &Runner{
		store:      st,
		crawler:    crawler,
		rules:      rules,
		researcher: researcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// Start creates a placeholder report, kicks off the crawl in the
// background, and returns the report id. The placeholder row is written
// synchronously so the id is immediately resolvable via GetReport.
func (r *Runner) Start(ctx context.Context, seedURL string, maxPages int) (string, error) {
	if maxPages <= 0 {
		maxPages = r.cfg.DefaultPages
	}

	now := time.Now().UTC()
	placeholder := seo.Report{
		ID:        uuid.NewString(),
		Date:      now,
		Status:    seo.ReportStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateReport(ctx, placeholder); err != nil {
		return "", fmt.Errorf("create placeholder report: %w", err)
	}

	// Snapshot active issue ids before the crawl so the completed report
	// can say what is new and what got fixed since last time.
	before, err := r.activeIssueIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot active issues: %w", err)
	}

	go r.complete(placeholder.ID, seedURL, maxPages, before)
	return placeholder.ID, nil
}

func (r *Runner) activeIssueIDs(ctx context.Context) (map[string]struct{}, error) {
	active, err := r.store.ListActiveIssues(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(active))
	for _, iss := range active {
		ids[iss.ID] = struct{}{}
	}
	return ids, nil
}

// complete runs the crawl and fills in the placeholder report. It is
// detached from the request context: the caller has already been
// answered, so only the crawl timeout bounds it.
func (r *Runner) complete(reportID, seedURL string, maxPages int, before map[string]struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CrawlTimeout)
	defer cancel()

	logger := r.logger.With(zap.String("report_id", reportID), zap.String("seed", seedURL))

	result, err := r.crawler.Crawl(ctx, seedURL, maxPages)
	if err != nil && len(result.Pages) == 0 {
		logger.Error("crawl failed", zap.Error(err))
		r.failReport(ctx, reportID, seedURL, err)
		return
	}

	now := time.Now().UTC()
	for _, page := range result.Pages {
		issues := r.rules.Run(page)
		var counts seo.IssueCounts
		for i := range issues {
			issues[i].ReportID = reportID
			issues[i].AutoFixable = seo.InFixableCategory(issues[i].Category)
			counts.Add(issues[i].Severity)
		}

		audit := seo.PageAudit{
			URL:             page.URL,
			Title:           page.Title,
			MetaDescription: page.MetaDescription,
			H1s:             page.H1s,
			WordCount:       page.WordCount,
			Counts:          counts,
			Issues:          issues,
			Score:           seo.Score(counts),
			AuditedAt:       now,
		}
		if err := r.store.SavePageAudit(ctx, audit); err != nil {
			logger.Error("save page audit", zap.String("url", page.URL), zap.Error(err))
		}
		if err := r.store.SaveIssues(ctx, issues); err != nil {
			logger.Error("save issues", zap.String("url", page.URL), zap.Error(err))
		}
	}

	if errIssues := crawlErrorIssues(reportID, result.Errors); len(errIssues) > 0 {
		if err := r.store.SaveIssues(ctx, errIssues); err != nil {
			logger.Error("save crawl error issues", zap.Error(err))
		}
	}

	active, err := r.store.ListActiveIssues(ctx)
	if err != nil {
		logger.Error("list active issues", zap.Error(err))
		r.failReport(ctx, reportID, seedURL, err)
		return
	}

	var counts seo.IssueCounts
	newIssues := 0
	for _, iss := range active {
		counts.Add(iss.Severity)
		if _, seen := before[iss.ID]; !seen {
			newIssues++
		}
	}
	fixedIssues := 0
	for id := range before {
		iss, err := r.store.GetIssue(ctx, id)
		if err != nil {
			continue
		}
		if iss.FixedAt != nil {
			fixedIssues++
		}
	}

	report := seo.Report{
		ID:          reportID,
		Date:        now,
		Status:      seo.ReportStatusCompleted,
		Counts:      counts,
		NewIssues:   newIssues,
		FixedIssues: fixedIssues,
		Score:       seo.Score(counts),
		TopFixes:    topPriorityFixes(active, 5),
		Performance: performanceSnapshot(result),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if r.researcher != nil {
		keywords, suggestions, err := r.researcher.Research(ctx, keywordSeeds(result.Pages))
		if err != nil {
			logger.Warn("keyword research failed", zap.Error(err))
		} else {
			report.Keywords = keywords
			report.Suggestions = suggestions
			if err := r.store.ReplaceKeywordRankings(ctx, keywords); err != nil {
				logger.Error("save keyword rankings", zap.Error(err))
			}
			if err := r.store.ReplaceContentSuggestions(ctx, suggestions); err != nil {
				logger.Error("save content suggestions", zap.Error(err))
			}
		}
	}

	if err := r.store.UpdateReport(ctx, report); err != nil {
		logger.Error("complete report", zap.Error(err))
		return
	}
	logger.Info("report completed",
		zap.Int("pages", len(result.Pages)),
		zap.Int("issues", counts.Total()),
		zap.Int("score", report.Score),
	)
}

// failReport completes the report with a single crawl_error issue when
// the crawl produced nothing at all. The report still resolves; callers
// polling the id see a completed report instead of a hung one.
func (r *Runner) failReport(ctx context.Context, reportID, seedURL string, cause error) {
	iss := crawlErrorIssue(reportID, seedURL, cause)
	if err := r.store.SaveIssues(ctx, []seo.Issue{iss}); err != nil {
		r.logger.Error("save crawl failure issue", zap.Error(err))
	}

	var counts seo.IssueCounts
	counts.Add(iss.Severity)
	now := time.Now().UTC()
	report := seo.Report{
		ID:        reportID,
		Date:      now,
		Status:    seo.ReportStatusCompleted,
		Counts:    counts,
		NewIssues: 1,
		Score:     seo.Score(counts),
		TopFixes:  []seo.Issue{iss},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.UpdateReport(ctx, report); err != nil {
		r.logger.Error("complete failed report", zap.Error(err))
	}
}

func crawlErrorIssues(reportID string, errs []crawl.CrawlError) []seo.Issue {
	issues := make([]seo.Issue, 0, len(errs))
	for _, ce := range errs {
		issues = append(issues, crawlErrorIssue(reportID, ce.URL, ce.Err))
	}
	return issues
}

func crawlErrorIssue(reportID, pageURL string, cause error) seo.Issue {
	return seo.Issue{
		ID:             seo.NewIssueID(seo.IssueCrawlError),
		Type:           seo.IssueCrawlError,
		Title:          "Page could not be crawled",
		Description:    fmt.Sprintf("Fetching %s failed: %v", pageURL, cause),
		Severity:       seo.SeverityHigh,
		Category:       seo.CategoryError,
		URL:            pageURL,
		RecommendedFix: "Verify the page responds with HTML and a 2xx status.",
		FixStatus:      seo.FixStatusPending,
		ReportID:       reportID,
		DetectedAt:     time.Now().UTC(),
	}
}

// topPriorityFixes returns up to limit active critical or high issues,
// worst first, then detection time. The sort is stable so equal-severity
// issues keep their discovery order.
func topPriorityFixes(active []seo.Issue, limit int) []seo.Issue {
	var sorted []seo.Issue
	for _, iss := range active {
		if iss.Severity == seo.SeverityCritical || iss.Severity == seo.SeverityHigh {
			sorted = append(sorted, iss)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := seo.SeverityRank(sorted[i].Severity), seo.SeverityRank(sorted[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].DetectedAt.Before(sorted[j].DetectedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func performanceSnapshot(result crawl.Result) *seo.PerformanceSnapshot {
	snap := &seo.PerformanceSnapshot{
		PagesCrawled:  len(result.Pages),
		FailedFetches: len(result.Errors),
	}
	if n := len(result.Pages) + len(result.Errors); n > 0 {
		snap.AvgFetchMs = result.Duration.Milliseconds() / int64(n)
	}
	return snap
}

// keywordSeeds derives research seed phrases from crawled page titles
// and H1s, deduplicated and capped at ten.
func keywordSeeds(pages []*seo.CrawledPage) []string {
	seen := make(map[string]struct{})
	var seeds []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || len(seeds) >= 10 {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		seeds = append(seeds, s)
	}
	for _, p := range pages {
		add(p.Title)
		for _, h1 := range p.H1s {
			add(h1)
		}
	}
	return seeds
}
