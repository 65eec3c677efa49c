package autofix

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// Remediation rewrites one class of defect in a page's document.
type Remediation interface {
	// Applies reports whether the defect is still present. A false
	// return means the page was fixed out of band since detection.
	Applies(page *seo.CrawledPage) bool
	// Apply mutates the document in place and returns a description of
	// what changed.
	Apply(doc *goquery.Document, page *seo.CrawledPage) (string, error)
}

// remediations maps issue types to their document rewrites. Types in a
// fixable category but absent here resolve to not_applicable: the engine
// knows the category is automatable in principle but has no rewrite yet.
var remediations = map[seo.IssueType]Remediation{
	seo.IssueMissingTitle:           missingTitle{},
	seo.IssueMissingMetaDescription: missingMetaDescription{},
	seo.IssueMissingCanonical:       missingCanonical{},
	seo.IssueMissingStructuredData:  missingStructuredData{},
}

type missingTitle struct{}

func (missingTitle) Applies(page *seo.CrawledPage) bool {
	return strings.TrimSpace(page.Title) == ""
}

func (missingTitle) Apply(doc *goquery.Document, page *seo.CrawledPage) (string, error) {
	title := deriveTitle(page)
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return "", fmt.Errorf("document has no <head>")
	}
	head.PrependHtml(fmt.Sprintf("<title>%s</title>", escapeText(title)))
	return fmt.Sprintf("added <title>%s</title>", title), nil
}

// deriveTitle prefers the page's first H1, falling back to a humanized
// form of the last URL path segment.
func deriveTitle(page *seo.CrawledPage) string {
	if len(page.H1s) > 0 && strings.TrimSpace(page.H1s[0]) != "" {
		return strings.TrimSpace(page.H1s[0])
	}
	return humanizePath(page.URL)
}

func humanizePath(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "Home"
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "Home"
	}
	segment := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		segment = path[idx+1:]
	}
	if idx := strings.Index(segment, "."); idx > 0 {
		segment = segment[:idx]
	}
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	words := strings.Fields(segment)
	if len(words) == 0 {
		return "Home"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

type missingMetaDescription struct{}

func (missingMetaDescription) Applies(page *seo.CrawledPage) bool {
	return strings.TrimSpace(page.MetaDescription) == ""
}

func (missingMetaDescription) Apply(doc *goquery.Document, page *seo.CrawledPage) (string, error) {
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return "", fmt.Errorf("document has no <head>")
	}
	desc := deriveDescription(doc, page)
	head.AppendHtml(fmt.Sprintf(`<meta name="description" content="%s">`, escapeAttr(desc)))
	return fmt.Sprintf("added meta description: %s", desc), nil
}

// deriveDescription builds a description from the first H1 and leading
// paragraph text, truncated to stay inside the recommended length.
func deriveDescription(doc *goquery.Document, page *seo.CrawledPage) string {
	var parts []string
	if len(page.H1s) > 0 {
		parts = append(parts, strings.TrimSpace(page.H1s[0]))
	}
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			parts = append(parts, text)
			return false
		}
		return true
	})
	desc := strings.TrimSpace(strings.Join(parts, ". "))
	if desc == "" {
		desc = deriveTitle(page)
	}
	if len(desc) > 150 {
		cut := desc[:150]
		if idx := strings.LastIndex(cut, " "); idx > 100 {
			cut = cut[:idx]
		}
		desc = cut
	}
	return desc
}

type missingCanonical struct{}

func (missingCanonical) Applies(page *seo.CrawledPage) bool {
	return strings.TrimSpace(page.CanonicalURL) == ""
}

func (missingCanonical) Apply(doc *goquery.Document, page *seo.CrawledPage) (string, error) {
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return "", fmt.Errorf("document has no <head>")
	}
	head.AppendHtml(fmt.Sprintf(`<link rel="canonical" href="%s">`, escapeAttr(page.URL)))
	return fmt.Sprintf("added canonical link to %s", page.URL), nil
}

type missingStructuredData struct{}

func (missingStructuredData) Applies(page *seo.CrawledPage) bool {
	return !page.HasJSONLD
}

func (missingStructuredData) Apply(doc *goquery.Document, page *seo.CrawledPage) (string, error) {
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return "", fmt.Errorf("document has no <head>")
	}
	name := page.Title
	if name == "" {
		name = deriveTitle(page)
	}
	jsonld := fmt.Sprintf(
		`{"@context":"https://schema.org","@type":"WebPage","name":%q,"url":%q}`,
		name, page.URL,
	)
	head.AppendHtml(fmt.Sprintf(`<script type="application/ld+json">%s</script>`, jsonld))
	return "added WebPage JSON-LD structured data", nil
}

func escapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func escapeAttr(s string) string {
	return strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;").Replace(s)
}
