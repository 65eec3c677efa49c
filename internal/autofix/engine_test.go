package autofix

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/fetch"
	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store/memory"
)

// htmlFetcher serves canned HTML bodies keyed by URL through the real
// parser, so remediations see exactly what a live fetch would produce.
type htmlFetcher struct {
	pages map[string]string
	err   error
}

func (f *htmlFetcher) Fetch(_ context.Context, rawURL string) (*seo.CrawledPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, errors.New("no such page")
	}
	return fetch.ParsePage(rawURL, 200, "text/html", []byte(body))
}

func seedIssue(t *testing.T, st *memory.Store, typ seo.IssueType, cat seo.Category, url string) seo.Issue {
	t.Helper()
	iss := seo.Issue{
		ID:          seo.NewIssueID(typ),
		Type:        typ,
		Severity:    seo.SeverityHigh,
		Category:    cat,
		URL:         url,
		AutoFixable: seo.InFixableCategory(cat),
		FixStatus:   seo.FixStatusPending,
		DetectedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.SaveIssues(context.Background(), []seo.Issue{iss}))
	return iss
}

const pageNoDescription = `<!DOCTYPE html>
<html><head><title>Acme Widgets</title></head>
<body><h1>Widgets</h1><p>We make the finest widgets in the land.</p></body></html>`

func TestFixMissingMetaDescription(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pub := NewMemoryPublisher()
	fetcher := &htmlFetcher{pages: map[string]string{
		"https://example.com/": pageNoDescription,
	}}
	engine := NewEngine(st, fetcher, pub, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingMetaDescription, seo.CategoryMetaTags, "https://example.com/")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFixed, res.Status)
	assert.Contains(t, res.Message, "meta description")

	published, ok := pub.Get("https://example.com/")
	require.True(t, ok)
	assert.Contains(t, published, `name="description"`)
	assert.Contains(t, published, "Widgets")

	stored, err := st.GetIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFixed, stored.FixStatus)
	require.NotNil(t, stored.FixedAt)
	assert.False(t, stored.Active())
}

func TestFixMissingTitleUsesH1(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pub := NewMemoryPublisher()
	fetcher := &htmlFetcher{pages: map[string]string{
		"https://example.com/pricing": `<html><head></head><body><h1>Pricing Plans</h1></body></html>`,
	}}
	engine := NewEngine(st, fetcher, pub, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingTitle, seo.CategoryMetaTags, "https://example.com/pricing")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFixed, res.Status)

	published, _ := pub.Get("https://example.com/pricing")
	assert.Contains(t, published, "<title>Pricing Plans</title>")
}

func TestFixMissingCanonical(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pub := NewMemoryPublisher()
	fetcher := &htmlFetcher{pages: map[string]string{
		"https://example.com/about": `<html><head><title>About</title></head><body></body></html>`,
	}}
	engine := NewEngine(st, fetcher, pub, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingCanonical, seo.CategoryMetaTags, "https://example.com/about")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFixed, res.Status)

	published, _ := pub.Get("https://example.com/about")
	assert.Contains(t, published, `rel="canonical"`)
	assert.Contains(t, published, "https://example.com/about")
}

func TestFixMissingStructuredData(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pub := NewMemoryPublisher()
	fetcher := &htmlFetcher{pages: map[string]string{
		"https://example.com/": `<html><head><title>Acme</title></head><body></body></html>`,
	}}
	engine := NewEngine(st, fetcher, pub, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingStructuredData, seo.CategorySchema, "https://example.com/")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFixed, res.Status)

	published, _ := pub.Get("https://example.com/")
	assert.Contains(t, published, "application/ld+json")
	assert.Contains(t, published, "schema.org")
}

func TestFixSkipsDefectAlreadyResolvedOnPage(t *testing.T) {
	t.Parallel()

	st := memory.New()
	// The live page already carries a description, so the recorded
	// issue is stale.
	fetcher := &htmlFetcher{pages: map[string]string{
		"https://example.com/": `<html><head><title>Acme</title>
<meta name="description" content="Already described."></head><body></body></html>`,
	}}
	engine := NewEngine(st, fetcher, nil, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingMetaDescription, seo.CategoryMetaTags, "https://example.com/")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusNotApplicable, res.Status)

	stored, err := st.GetIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.FixedAt)
	assert.False(t, stored.Active())
}

func TestFixAlreadyFixedIssueLeavesRowUntouched(t *testing.T) {
	t.Parallel()

	st := memory.New()
	engine := NewEngine(st, &htmlFetcher{}, nil, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingTitle, seo.CategoryMetaTags, "https://example.com/")

	now := time.Now().UTC()
	iss.FixedAt = &now
	iss.FixStatus = seo.FixStatusFixed
	require.NoError(t, st.UpdateIssue(context.Background(), iss))

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusNotApplicable, res.Status)

	stored, err := st.GetIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFixed, stored.FixStatus)
}

func TestFixRejectsNonFixableCategory(t *testing.T) {
	t.Parallel()

	st := memory.New()
	engine := NewEngine(st, &htmlFetcher{}, nil, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueImageMissingDimensions, seo.CategoryPerformance, "https://example.com/")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusNotApplicable, res.Status)
	assert.Contains(t, res.Message, "performance")

	stored, err := st.GetIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	// Non-fixable issues stay active; a human still has to act.
	assert.Nil(t, stored.FixedAt)
	assert.True(t, stored.Active())
}

func TestFixWithoutRemediationIsNotApplicable(t *testing.T) {
	t.Parallel()

	st := memory.New()
	engine := NewEngine(st, &htmlFetcher{}, nil, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueLinkGenericText, seo.CategoryLinks, "https://example.com/")

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusNotApplicable, res.Status)
	assert.Contains(t, res.Message, "manual change")

	stored, err := st.GetIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active())
}

func TestFixGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	st := memory.New()
	fetcher := &htmlFetcher{err: errors.New("connection refused")}
	engine := NewEngine(st, fetcher, nil, zap.NewNop())
	iss := seedIssue(t, st, seo.IssueMissingTitle, seo.CategoryMetaTags, "https://example.com/")

	for i := 0; i < maxAttempts; i++ {
		res, err := engine.FixIssue(context.Background(), iss.ID)
		require.NoError(t, err)
		assert.Equal(t, seo.FixStatusFailed, res.Status)
		assert.Contains(t, res.Message, "refetch failed")
	}

	res, err := engine.FixIssue(context.Background(), iss.ID)
	require.NoError(t, err)
	assert.Equal(t, seo.FixStatusFailed, res.Status)
	assert.Contains(t, res.Message, "gave up")
}

func TestFixableIssuesExcludesRetiredAndNonFixable(t *testing.T) {
	t.Parallel()

	st := memory.New()
	engine := NewEngine(st, &htmlFetcher{}, nil, zap.NewNop())

	fixable := seedIssue(t, st, seo.IssueMissingTitle, seo.CategoryMetaTags, "https://example.com/")
	seedIssue(t, st, seo.IssueImageMissingDimensions, seo.CategoryPerformance, "https://example.com/")
	seedIssue(t, st, seo.IssueMissingViewport, seo.CategoryMobile, "https://example.com/")
	ignored := seedIssue(t, st, seo.IssueMissingCanonical, seo.CategoryMetaTags, "https://example.com/")

	ignored.Ignored = true
	require.NoError(t, st.UpdateIssue(context.Background(), ignored))

	got, err := engine.FixableIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fixable.ID, got[0].ID)
	for _, iss := range got {
		assert.NotEqual(t, seo.CategoryPerformance, iss.Category)
		assert.NotEqual(t, seo.CategoryMobile, iss.Category)
	}
}

func TestFixAllSweepsEveryFixableIssue(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pub := NewMemoryPublisher()
	fetcher := &htmlFetcher{pages: map[string]string{
		"https://example.com/a": `<html><head></head><body><h1>Page A</h1></body></html>`,
		"https://example.com/b": `<html><head><title>B</title></head><body></body></html>`,
	}}
	engine := NewEngine(st, fetcher, pub, zap.NewNop())

	seedIssue(t, st, seo.IssueMissingTitle, seo.CategoryMetaTags, "https://example.com/a")
	seedIssue(t, st, seo.IssueMissingCanonical, seo.CategoryMetaTags, "https://example.com/b")
	seedIssue(t, st, seo.IssueLinkGenericText, seo.CategoryLinks, "https://example.com/b")

	results, err := engine.FixAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byStatus := map[seo.FixStatus]int{}
	for _, r := range results {
		byStatus[r.Status]++
	}
	assert.Equal(t, 2, byStatus[seo.FixStatusFixed])
	assert.Equal(t, 1, byStatus[seo.FixStatusNotApplicable])

	// A second sweep finds nothing left in fixed state to retry; the
	// link issue stays active but still resolves to not_applicable.
	results, err = engine.FixAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, seo.FixStatusNotApplicable, results[0].Status)
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDeriveDescriptionTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("verylongword ", 30)
	page, err := fetch.ParsePage("https://example.com/", 200, "text/html",
		[]byte(`<html><head></head><body><h1>Header</h1><p>`+long+`</p></body></html>`))
	require.NoError(t, err)

	doc := mustDoc(t, `<html><body><p>`+long+`</p></body></html>`)
	desc := deriveDescription(doc, page)
	assert.LessOrEqual(t, len(desc), 150)
	assert.NotEmpty(t, desc)
}

func TestHumanizePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Pricing Plans", humanizePath("https://example.com/pricing-plans"))
	assert.Equal(t, "About Us", humanizePath("https://example.com/about_us/"))
	assert.Equal(t, "Index", humanizePath("https://example.com/index.html"))
	assert.Equal(t, "Home", humanizePath("https://example.com/"))
}
