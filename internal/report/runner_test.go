package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/crawl"
	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store/memory"
)

type fakeCrawler struct {
	result crawl.Result
	err    error
}

func (f *fakeCrawler) Crawl(_ context.Context, _ string, _ int) (crawl.Result, error) {
	return f.result, f.err
}

type fakeRules struct {
	issues map[string][]seo.Issue
}

func (f *fakeRules) Run(page *seo.CrawledPage) []seo.Issue {
	out := make([]seo.Issue, len(f.issues[page.URL]))
	copy(out, f.issues[page.URL])
	return out
}

type fakeResearcher struct {
	seeds []string
}

func (f *fakeResearcher) Research(_ context.Context, seeds []string) ([]seo.KeywordRanking, []seo.ContentSuggestion, error) {
	f.seeds = seeds
	return []seo.KeywordRanking{{Keyword: "widgets", SearchVolume: 900}},
		[]seo.ContentSuggestion{{Topic: "widgets"}}, nil
}

func issueOfSeverity(t seo.IssueType, sev seo.Severity, cat seo.Category) seo.Issue {
	return seo.Issue{
		ID:         seo.NewIssueID(t),
		Type:       t,
		Severity:   sev,
		Category:   cat,
		FixStatus:  seo.FixStatusPending,
		DetectedAt: time.Now().UTC(),
	}
}

func waitCompleted(t *testing.T, st *memory.Store, id string) seo.Report {
	t.Helper()
	var report seo.Report
	require.Eventually(t, func() bool {
		r, err := st.GetReport(context.Background(), id)
		if err != nil {
			return false
		}
		report = r
		return r.Status == seo.ReportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	return report
}

func TestStartReturnsResolvableProcessingReport(t *testing.T) {
	t.Parallel()

	st := memory.New()
	block := make(chan struct{})
	crawler := &blockingCrawler{release: block}
	runner := NewRunner(st, crawler, &fakeRules{}, nil, zap.NewNop(), Config{})

	id, err := runner.Start(context.Background(), "https://example.com", 5)
	require.NoError(t, err)

	// The placeholder must exist before the crawl finishes.
	report, err := st.GetReport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, seo.ReportStatusProcessing, report.Status)

	close(block)
	waitCompleted(t, st, id)
}

type blockingCrawler struct {
	release chan struct{}
}

func (b *blockingCrawler) Crawl(ctx context.Context, _ string, _ int) (crawl.Result, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return crawl.Result{}, nil
}

func TestCompleteAggregatesIssuesAndScore(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pages := []*seo.CrawledPage{
		{URL: "https://example.com/", Title: "Home"},
		{URL: "https://example.com/about", Title: "About"},
	}
	rules := &fakeRules{issues: map[string][]seo.Issue{
		"https://example.com/": {
			issueOfSeverity(seo.IssueMissingTitle, seo.SeverityCritical, seo.CategoryMetaTags),
			issueOfSeverity(seo.IssueMissingH1, seo.SeverityHigh, seo.CategoryStructure),
		},
		"https://example.com/about": {
			issueOfSeverity(seo.IssueMissingCanonical, seo.SeverityMedium, seo.CategoryMetaTags),
		},
	}}
	crawler := &fakeCrawler{result: crawl.Result{Pages: pages, Duration: 100 * time.Millisecond}}
	runner := NewRunner(st, crawler, rules, nil, zap.NewNop(), Config{})

	id, err := runner.Start(context.Background(), "https://example.com", 5)
	require.NoError(t, err)
	report := waitCompleted(t, st, id)

	assert.Equal(t, 1, report.Counts.Critical)
	assert.Equal(t, 1, report.Counts.High)
	assert.Equal(t, 1, report.Counts.Medium)
	assert.Equal(t, 3, report.NewIssues)
	assert.Equal(t, 0, report.FixedIssues)
	// 100 - 10 - 5 - 2 = 83
	assert.Equal(t, 83, report.Score)

	require.NotEmpty(t, report.TopFixes)
	assert.Equal(t, seo.SeverityCritical, report.TopFixes[0].Severity)

	require.NotNil(t, report.Performance)
	assert.Equal(t, 2, report.Performance.PagesCrawled)

	audits, err := st.ListPageAudits(context.Background())
	require.NoError(t, err)
	assert.Len(t, audits, 2)

	active, err := st.ListActiveIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, iss := range active {
		assert.Equal(t, id, iss.ReportID)
	}
}

func TestCompleteMarksFixableCategories(t *testing.T) {
	t.Parallel()

	st := memory.New()
	rules := &fakeRules{issues: map[string][]seo.Issue{
		"https://example.com/": {
			issueOfSeverity(seo.IssueMissingMetaDescription, seo.SeverityHigh, seo.CategoryMetaTags),
			issueOfSeverity(seo.IssueImageMissingDimensions, seo.SeverityMedium, seo.CategoryPerformance),
		},
	}}
	crawler := &fakeCrawler{result: crawl.Result{Pages: []*seo.CrawledPage{{URL: "https://example.com/"}}}}
	runner := NewRunner(st, crawler, rules, nil, zap.NewNop(), Config{})

	id, err := runner.Start(context.Background(), "https://example.com", 1)
	require.NoError(t, err)
	waitCompleted(t, st, id)

	active, err := st.ListActiveIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, iss := range active {
		if iss.Category == seo.CategoryMetaTags {
			assert.True(t, iss.AutoFixable)
		} else {
			assert.False(t, iss.AutoFixable)
		}
	}
}

func TestCompleteRecordsDeltasAgainstSnapshot(t *testing.T) {
	t.Parallel()

	st := memory.New()
	ctx := context.Background()

	// Pre-existing issues: one will be fixed before the next crawl, one
	// stays active.
	old := issueOfSeverity(seo.IssueMissingTitle, seo.SeverityCritical, seo.CategoryMetaTags)
	stays := issueOfSeverity(seo.IssueMissingH1, seo.SeverityHigh, seo.CategoryStructure)
	require.NoError(t, st.SaveIssues(ctx, []seo.Issue{old, stays}))

	fresh := issueOfSeverity(seo.IssueMissingCanonical, seo.SeverityMedium, seo.CategoryMetaTags)
	rules := &fakeRules{issues: map[string][]seo.Issue{
		"https://example.com/": {fresh},
	}}
	crawler := &fakeCrawler{result: crawl.Result{Pages: []*seo.CrawledPage{{URL: "https://example.com/"}}}}

	// The crawler fixes "old" mid-crawl, after the snapshot was taken.
	fixingCrawler := &hookCrawler{inner: crawler, hook: func() {
		now := time.Now().UTC()
		old.FixedAt = &now
		old.FixStatus = seo.FixStatusFixed
		require.NoError(t, st.UpdateIssue(ctx, old))
	}}

	runner := NewRunner(st, fixingCrawler, rules, nil, zap.NewNop(), Config{})
	id, err := runner.Start(ctx, "https://example.com", 1)
	require.NoError(t, err)
	report := waitCompleted(t, st, id)

	assert.Equal(t, 1, report.NewIssues)
	assert.Equal(t, 1, report.FixedIssues)
	// Active after the crawl: stays (high) + fresh (medium).
	assert.Equal(t, 0, report.Counts.Critical)
	assert.Equal(t, 1, report.Counts.High)
	assert.Equal(t, 1, report.Counts.Medium)
}

type hookCrawler struct {
	inner SiteCrawler
	hook  func()
}

func (h *hookCrawler) Crawl(ctx context.Context, seed string, maxPages int) (crawl.Result, error) {
	h.hook()
	return h.inner.Crawl(ctx, seed, maxPages)
}

func TestCompleteTurnsCrawlErrorsIntoIssues(t *testing.T) {
	t.Parallel()

	st := memory.New()
	crawler := &fakeCrawler{result: crawl.Result{
		Pages:  []*seo.CrawledPage{{URL: "https://example.com/"}},
		Errors: []crawl.CrawlError{{URL: "https://example.com/broken", Err: errors.New("status 500")}},
	}}
	runner := NewRunner(st, crawler, &fakeRules{}, nil, zap.NewNop(), Config{})

	id, err := runner.Start(context.Background(), "https://example.com", 5)
	require.NoError(t, err)
	report := waitCompleted(t, st, id)

	assert.Equal(t, 1, report.Counts.High)
	active, err := st.ListActiveIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, seo.IssueCrawlError, active[0].Type)
	assert.Equal(t, seo.CategoryError, active[0].Category)
	assert.False(t, active[0].AutoFixable)
}

func TestCompleteFailedCrawlStillCompletesReport(t *testing.T) {
	t.Parallel()

	st := memory.New()
	crawler := &fakeCrawler{err: errors.New("dns failure")}
	runner := NewRunner(st, crawler, &fakeRules{}, nil, zap.NewNop(), Config{})

	id, err := runner.Start(context.Background(), "https://unreachable.test", 5)
	require.NoError(t, err)
	report := waitCompleted(t, st, id)

	assert.Equal(t, 1, report.Counts.High)
	require.Len(t, report.TopFixes, 1)
	assert.Equal(t, seo.IssueCrawlError, report.TopFixes[0].Type)
}

func TestCompleteRunsKeywordResearch(t *testing.T) {
	t.Parallel()

	st := memory.New()
	researcher := &fakeResearcher{}
	crawler := &fakeCrawler{result: crawl.Result{Pages: []*seo.CrawledPage{
		{URL: "https://example.com/", Title: "Acme Widgets", H1s: []string{"Widgets for everyone"}},
	}}}
	runner := NewRunner(st, crawler, &fakeRules{}, researcher, zap.NewNop(), Config{})

	id, err := runner.Start(context.Background(), "https://example.com", 1)
	require.NoError(t, err)
	report := waitCompleted(t, st, id)

	assert.Equal(t, []string{"acme widgets", "widgets for everyone"}, researcher.seeds)
	require.Len(t, report.Keywords, 1)
	require.Len(t, report.Suggestions, 1)

	kws, err := st.ListKeywordRankings(context.Background())
	require.NoError(t, err)
	assert.Len(t, kws, 1)
}

func TestKeywordSeedsDedupAndCap(t *testing.T) {
	t.Parallel()

	var pages []*seo.CrawledPage
	for i := 0; i < 8; i++ {
		pages = append(pages, &seo.CrawledPage{
			Title: "Shared Title",
			H1s:   []string{string(rune('a' + i)), string(rune('a' + i))},
		})
	}
	seeds := keywordSeeds(pages)
	assert.Len(t, seeds, 9)
	assert.Equal(t, "shared title", seeds[0])
}
