package keywords

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store"
)

// MaxSeeds caps how many seed phrases one research run accepts.
const MaxSeeds = 10

// Service runs keyword research and serves stored results.
type Service struct {
	provider DataProvider
	store    store.Store
	logger   *zap.Logger
}

// NewService constructs a Service. A nil provider gets the simulated
// default.
func NewService(provider DataProvider, st store.Store, logger *zap.Logger) *Service {
	if provider == nil {
		provider = NewSimulatedProvider()
	}
	return &Service{provider: provider, store: st, logger: logger}
}

// Research expands each seed phrase into its related keyword set, ranks
// everything through the provider, and clusters the results into content
// suggestions. Between 1 and MaxSeeds seeds are accepted.
func (s *Service) Research(ctx context.Context, seeds []string) ([]seo.KeywordRanking, []seo.ContentSuggestion, error) {
	cleaned := make([]string, 0, len(seeds))
	seen := make(map[string]struct{})
	for _, seed := range seeds {
		seed = strings.ToLower(strings.TrimSpace(seed))
		if seed == "" {
			continue
		}
		if _, dup := seen[seed]; dup {
			continue
		}
		seen[seed] = struct{}{}
		cleaned = append(cleaned, seed)
	}
	if len(cleaned) == 0 {
		return nil, nil, fmt.Errorf("at least one seed keyword is required")
	}
	if len(cleaned) > MaxSeeds {
		return nil, nil, fmt.Errorf("at most %d seed keywords are allowed, got %d", MaxSeeds, len(cleaned))
	}

	var rankings []seo.KeywordRanking
	var suggestions []seo.ContentSuggestion
	ranked := make(map[string]struct{})
	for _, seed := range cleaned {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		cluster := []seo.KeywordRanking{s.provider.Lookup(seed)}
		for _, related := range cluster[0].Related {
			cluster = append(cluster, s.provider.Lookup(related))
		}
		for _, k := range cluster {
			if _, dup := ranked[k.Keyword]; dup {
				continue
			}
			ranked[k.Keyword] = struct{}{}
			rankings = append(rankings, k)
		}
		suggestions = append(suggestions, suggestionFor(seed, cluster))
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].SearchVolume > rankings[j].SearchVolume
	})
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].SearchVolume > suggestions[j].SearchVolume
	})
	s.logger.Info("keyword research completed",
		zap.Int("seeds", len(cleaned)),
		zap.Int("keywords", len(rankings)),
		zap.Int("suggestions", len(suggestions)),
	)
	return rankings, suggestions, nil
}

// suggestionFor rolls one seed's cluster into a content suggestion.
func suggestionFor(seed string, cluster []seo.KeywordRanking) seo.ContentSuggestion {
	totalVolume := 0
	totalDifficulty := 0
	targets := make([]string, 0, len(cluster))
	subheadings := make([]string, 0, len(cluster)-1)
	for i, k := range cluster {
		totalVolume += k.SearchVolume
		totalDifficulty += k.Difficulty
		targets = append(targets, k.Keyword)
		if i > 0 {
			subheadings = append(subheadings, titleCase(k.Keyword))
		}
	}
	return seo.ContentSuggestion{
		Topic:          seed,
		SearchVolume:   totalVolume,
		AvgDifficulty:  totalDifficulty / len(cluster),
		SuggestedTitle: fmt.Sprintf("The Complete Guide to %s", titleCase(seed)),
		Subheadings:    subheadings,
		TargetKeywords: targets,
		CreatedAt:      time.Now().UTC(),
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// TopKeywords returns stored rankings filtered by minimum volume and
// capped at limit, highest volume first.
func (s *Service) TopKeywords(ctx context.Context, limit, minVolume int) ([]seo.KeywordRanking, error) {
	rankings, err := s.store.ListKeywordRankings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keyword rankings: %w", err)
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].SearchVolume > rankings[j].SearchVolume
	})
	out := rankings[:0:0]
	for _, k := range rankings {
		if k.SearchVolume < minVolume {
			continue
		}
		out = append(out, k)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SuggestedTopics returns stored content suggestions filtered by minimum
// combined volume, highest volume first, capped at limit.
func (s *Service) SuggestedTopics(ctx context.Context, limit, minVolume int) ([]seo.ContentSuggestion, error) {
	suggestions, err := s.store.ListContentSuggestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content suggestions: %w", err)
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].SearchVolume > suggestions[j].SearchVolume
	})
	out := suggestions[:0:0]
	for _, c := range suggestions {
		if c.SearchVolume < minVolume {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
