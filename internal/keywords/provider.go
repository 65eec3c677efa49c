// Package keywords produces keyword rankings and content suggestions.
// The default provider synthesizes metrics deterministically so the rest
// of the pipeline behaves as if a real keyword API were attached.
package keywords

import (
	"hash/fnv"
	"strings"
	"time"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// DataProvider resolves metrics for a single keyword. Implementations
// must be deterministic per keyword within a process lifetime so repeated
// research runs produce stable reports.
type DataProvider interface {
	Lookup(keyword string) seo.KeywordRanking
}

var trends = []string{"up", "stable", "down"}

// SimulatedProvider derives every metric from an FNV hash of the keyword
// itself. Same keyword, same numbers, on any machine.
type SimulatedProvider struct {
	now func() time.Time
}

// NewSimulatedProvider constructs a SimulatedProvider.
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{now: time.Now}
}

// Lookup synthesizes ranking metrics for one keyword.
func (p *SimulatedProvider) Lookup(keyword string) seo.KeywordRanking {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	h := fnv.New64a()
	h.Write([]byte(keyword))
	sum := h.Sum64()

	// Longer keyword phrases skew toward lower volume and difficulty,
	// mirroring how long-tail queries behave.
	words := len(strings.Fields(keyword))
	if words == 0 {
		words = 1
	}
	volume := int(100+sum%9900) / words
	difficulty := int((sum >> 8) % 101)
	if words > 1 {
		difficulty = difficulty * 2 / (words + 1)
	}

	return seo.KeywordRanking{
		Keyword:      keyword,
		SearchVolume: volume,
		Difficulty:   difficulty,
		Relevance:    int(50 + (sum>>16)%51),
		Position:     int(1 + (sum>>24)%50),
		Trend:        trends[(sum>>32)%3],
		Related:      relatedKeywords(keyword),
		CheckedAt:    p.now().UTC(),
	}
}

// relatedKeywords expands a keyword into the long-tail variants a real
// research tool would surface.
func relatedKeywords(keyword string) []string {
	if keyword == "" {
		return nil
	}
	return []string{
		"best " + keyword,
		keyword + " guide",
		"how to choose " + keyword,
		keyword + " vs alternatives",
	}
}
