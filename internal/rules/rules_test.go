package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawlworks/seoaudit/internal/seo"
)

func pageWith(mutate func(*seo.CrawledPage)) *seo.CrawledPage {
	// A page that passes every detector; tests break one thing at a time.
	page := &seo.CrawledPage{
		URL:             "https://example.com/",
		StatusCode:      200,
		Title:           "Acme Widgets | Quality widgets shipped fast",
		MetaDescription: "Acme Widgets sells durable, affordable widgets with free two-day shipping and a lifetime warranty.",
		CanonicalURL:    "https://example.com/",
		MetaTags: []seo.MetaTag{
			{Name: "description", Content: "Acme Widgets sells durable, affordable widgets with free two-day shipping and a lifetime warranty."},
			{Name: "viewport", Content: "width=device-width, initial-scale=1"},
		},
		H1s: []string{"Acme Widgets"},
		Headings: []seo.Heading{
			{Level: 1, Text: "Acme Widgets"},
			{Level: 2, Text: "Products"},
		},
		Images: []seo.Image{
			{Src: "/logo.png", Alt: "Acme logo", HasAlt: true, HasWidth: true, HasHeight: true},
		},
		Links: []seo.Link{
			{Href: "/about", Text: "About Acme", Resolved: "https://example.com/about"},
		},
		WordCount: 400,
		HasJSONLD: true,
	}
	if mutate != nil {
		mutate(page)
	}
	return page
}

func issueTypes(issues []seo.Issue) []seo.IssueType {
	out := make([]seo.IssueType, len(issues))
	for i, iss := range issues {
		out[i] = iss.Type
	}
	return out
}

func TestCleanPageHasNoIssues(t *testing.T) {
	t.Parallel()

	issues := NewEngine().Run(pageWith(nil))
	assert.Empty(t, issues)
}

func TestTitleDetector(t *testing.T) {
	t.Parallel()

	d := &TitleDetector{}

	issues := d.Detect(pageWith(func(p *seo.CrawledPage) { p.Title = "" }))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMissingTitle, issues[0].Type)
	assert.Equal(t, seo.SeverityCritical, issues[0].Severity)
	assert.Equal(t, seo.CategoryMetaTags, issues[0].Category)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) { p.Title = "Too short" }))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueTitleTooShort, issues[0].Type)
	assert.Equal(t, seo.SeverityMedium, issues[0].Severity)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Title = strings.Repeat("Widgets ", 10) // 80 chars
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueTitleTooLong, issues[0].Type)
	assert.Equal(t, seo.SeverityLow, issues[0].Severity)
}

func TestMetaDescriptionDetector(t *testing.T) {
	t.Parallel()

	d := &MetaDescriptionDetector{}

	issues := d.Detect(pageWith(func(p *seo.CrawledPage) { p.MetaDescription = "" }))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMissingMetaDescription, issues[0].Type)
	assert.Equal(t, seo.SeverityHigh, issues[0].Severity)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) { p.MetaDescription = "Widgets." }))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMetaDescriptionTooShort, issues[0].Type)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.MetaDescription = strings.Repeat("widgets ", 20) // 160 chars
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMetaDescriptionTooLong, issues[0].Type)
}

func TestCanonicalDetector(t *testing.T) {
	t.Parallel()

	issues := (&CanonicalDetector{}).Detect(pageWith(func(p *seo.CrawledPage) { p.CanonicalURL = "" }))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMissingCanonical, issues[0].Type)
	assert.Equal(t, seo.SeverityMedium, issues[0].Severity)
}

func TestViewportDetector(t *testing.T) {
	t.Parallel()

	d := &ViewportDetector{}

	issues := d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.MetaTags = []seo.MetaTag{{Name: "description", Content: "x"}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMissingViewport, issues[0].Type)
	assert.Equal(t, seo.SeverityHigh, issues[0].Severity)
	assert.Equal(t, seo.CategoryMobile, issues[0].Category)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.MetaTags = []seo.MetaTag{{Name: "viewport", Content: "initial-scale=1"}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueViewportNotResponsive, issues[0].Type)
	assert.Equal(t, seo.SeverityMedium, issues[0].Severity)
}

func TestHeadingDetector(t *testing.T) {
	t.Parallel()

	d := &HeadingDetector{}

	issues := d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.H1s = nil
		p.Headings = []seo.Heading{{Level: 2, Text: "Products"}}
	}))
	assert.Contains(t, issueTypes(issues), seo.IssueMissingH1)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.H1s = []string{"One", "Two"}
	}))
	assert.Contains(t, issueTypes(issues), seo.IssueMultipleH1)
}

func TestHeadingHierarchySkips(t *testing.T) {
	t.Parallel()

	issues := (&HeadingDetector{}).Detect(pageWith(func(p *seo.CrawledPage) {
		p.Headings = []seo.Heading{
			{Level: 1, Text: "Top"},
			{Level: 3, Text: "Skipped"},   // h1 -> h3
			{Level: 2, Text: "Back up"},   // fine
			{Level: 5, Text: "Way down"},  // h2 -> h5
			{Level: 6, Text: "One more"},  // fine
		}
	}))

	skips := 0
	for _, iss := range issues {
		if iss.Type == seo.IssueHeadingHierarchySkip {
			skips++
			assert.Equal(t, seo.SeverityMedium, iss.Severity)
		}
	}
	assert.Equal(t, 2, skips)
}

func TestImageDetector(t *testing.T) {
	t.Parallel()

	d := &ImageDetector{}

	issues := d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Images = []seo.Image{{Src: "/hero.jpg", HasWidth: true, HasHeight: true}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueImageMissingAlt, issues[0].Type)
	assert.Equal(t, seo.SeverityMedium, issues[0].Severity)
	assert.Equal(t, seo.CategoryContent, issues[0].Category)

	// Decorative images are exempt from the alt check.
	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Images = []seo.Image{{Src: "/divider.png", RolePresentation: true, HasWidth: true, HasHeight: true}}
	}))
	assert.Empty(t, issues)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Images = []seo.Image{{
			Src: "/hero.jpg", HasAlt: true, Alt: strings.Repeat("a", 120),
			HasWidth: true, HasHeight: true,
		}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueImageAltTooLong, issues[0].Type)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Images = []seo.Image{{Src: "/hero.jpg", HasAlt: true, Alt: "Hero"}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueImageMissingDimensions, issues[0].Type)
}

func TestLinkDetector(t *testing.T) {
	t.Parallel()

	d := &LinkDetector{}

	issues := d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Links = []seo.Link{{Href: "#", Text: "Menu"}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueLinkEmptyHref, issues[0].Type)

	for _, text := range []string{"click here", "Read More", "LEARN MORE", "more", "Link"} {
		issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
			p.Links = []seo.Link{{Href: "/x", Text: text}}
		}))
		require.Len(t, issues, 1, "text %q", text)
		assert.Equal(t, seo.IssueLinkGenericText, issues[0].Type)
	}

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Links = []seo.Link{{
			Href: "https://partner.example.org/", Text: "Our partner",
			Resolved: "https://partner.example.org/", External: true,
		}}
	}))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueLinkMissingNoopener, issues[0].Type)

	issues = d.Detect(pageWith(func(p *seo.CrawledPage) {
		p.Links = []seo.Link{{
			Href: "https://partner.example.org/", Text: "Our partner",
			Resolved: "https://partner.example.org/", External: true, Rel: "noopener noreferrer",
		}}
	}))
	assert.Empty(t, issues)
}

func TestStructuredDataDetector(t *testing.T) {
	t.Parallel()

	issues := (&StructuredDataDetector{}).Detect(pageWith(func(p *seo.CrawledPage) { p.HasJSONLD = false }))
	require.Len(t, issues, 1)
	assert.Equal(t, seo.IssueMissingStructuredData, issues[0].Type)
	assert.Equal(t, seo.CategorySchema, issues[0].Category)
}

func TestPerformanceDetectorIsPlaceholder(t *testing.T) {
	t.Parallel()

	assert.Empty(t, (&PerformanceDetector{}).Detect(pageWith(nil)))
}

// Mirrors the canonical audit scenario: a page with no title, no meta
// description, two H1s, and one image without alt text.
func TestAuditScenarioFourIssues(t *testing.T) {
	t.Parallel()

	page := pageWith(func(p *seo.CrawledPage) {
		p.Title = ""
		p.MetaDescription = ""
		p.H1s = []string{"One", "Two"}
		p.Headings = []seo.Heading{{Level: 1, Text: "One"}, {Level: 1, Text: "Two"}}
		p.Images = []seo.Image{{Src: "/x.jpg", HasWidth: true, HasHeight: true}}
	})

	var issues []seo.Issue
	for _, d := range []Detector{&TitleDetector{}, &MetaDescriptionDetector{}, &HeadingDetector{}, &ImageDetector{}} {
		issues = append(issues, d.Detect(page)...)
	}

	require.Len(t, issues, 4)

	categories := map[seo.Category]int{}
	for _, iss := range issues {
		categories[iss.Category]++
	}
	assert.Equal(t, 2, categories[seo.CategoryMetaTags])
	assert.Equal(t, 1, categories[seo.CategoryStructure])
	assert.Equal(t, 1, categories[seo.CategoryContent])

	var counts seo.IssueCounts
	for _, iss := range issues {
		counts.Add(iss.Severity)
	}
	assert.Equal(t, 1, counts.Critical)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 2, counts.Medium)
}

// Detector output must be deterministic for the same input, random id
// suffix aside.
func TestDetectorDeterminism(t *testing.T) {
	t.Parallel()

	page := pageWith(func(p *seo.CrawledPage) {
		p.Title = ""
		p.HasJSONLD = false
	})

	first := NewEngine().Run(page)
	second := NewEngine().Run(page)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].Severity, second[i].Severity)
		assert.Equal(t, first[i].Category, second[i].Category)
		assert.NotEqual(t, first[i].ID, second[i].ID)
		assert.True(t, strings.HasPrefix(first[i].ID, string(first[i].Type)+"_"))
	}
}
