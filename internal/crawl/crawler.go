// Package crawl implements bounded breadth-first traversal of a site.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/fetch"
	"github.com/crawlworks/seoaudit/internal/metrics"
	"github.com/crawlworks/seoaudit/internal/seo"
)

// CrawlError records a page that could not be fetched or parsed. The
// crawl continues past these; the aggregator turns them into issues.
type CrawlError struct {
	URL string
	Err error
}

// Result is the outcome of one crawl run.
type Result struct {
	Pages    []*seo.CrawledPage
	Errors   []CrawlError
	Duration time.Duration
}

// Crawler walks a site breadth-first from a seed URL. Each Crawl call
// owns its own frontier and visited set, so concurrent crawls never
// share mutable state.
type Crawler struct {
	fetcher fetch.Fetcher
	delay   time.Duration
	logger  *zap.Logger
	pauser  pauseController
}

// New constructs a Crawler. The delay is the politeness gap enforced
// between consecutive fetches; it is a rate limit, not an optimization.
func New(fetcher fetch.Fetcher, delay time.Duration, logger *zap.Logger) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		delay:   delay,
		logger:  logger,
		pauser:  &timerPauseController{},
	}
}

// Crawl visits at most maxPages pages reachable from seedURL, in FIFO
// discovery order, staying on the seed's hostname. It terminates when
// the frontier drains, the page budget is reached, or ctx is canceled.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, maxPages int) (Result, error) {
	start := time.Now()

	seed, err := url.Parse(seedURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse seed url: %w", err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return Result{}, fmt.Errorf("seed url must be http or https, got %q", seed.Scheme)
	}
	if maxPages <= 0 {
		return Result{}, fmt.Errorf("maxPages must be > 0")
	}

	normalizedSeed, err := NormalizeURL(seedURL)
	if err != nil {
		return Result{}, err
	}

	metrics.CrawlsStarted.Inc()

	visited := newVisitTracker()
	frontier := []string{normalizedSeed}
	queued := map[string]struct{}{normalizedSeed: {}}

	var result Result
	for len(frontier) > 0 && len(result.Pages) < maxPages {
		if err := ctx.Err(); err != nil {
			c.logger.Info("crawl canceled",
				zap.String("seed", seedURL),
				zap.Int("pages", len(result.Pages)),
			)
			result.Duration = time.Since(start)
			return result, err
		}

		next := frontier[0]
		frontier = frontier[1:]

		// Mark visited regardless of outcome so persistent failures
		// cannot loop forever.
		if !visited.MarkIfNew(next) {
			continue
		}

		page, err := c.fetcher.Fetch(ctx, next)
		if err != nil {
			c.logger.Warn("fetch failed",
				zap.String("url", next),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, CrawlError{URL: next, Err: err})
			c.pauser.Pause(ctx, c.delay)
			continue
		}
		if page == nil {
			// Non-HTML response; skip silently.
			c.pauser.Pause(ctx, c.delay)
			continue
		}

		metrics.PagesCrawled.Inc()
		result.Pages = append(result.Pages, page)
		c.logger.Debug("page crawled",
			zap.String("url", next),
			zap.Int("status", page.StatusCode),
			zap.Int("links", len(page.Links)),
		)

		for _, link := range fetch.SameOriginLinks(page) {
			if !Admissible(seed, link) {
				continue
			}
			normalized, err := NormalizeURL(link)
			if err != nil {
				continue
			}
			if visited.Seen(normalized) {
				continue
			}
			if _, inQueue := queued[normalized]; inQueue {
				continue
			}
			queued[normalized] = struct{}{}
			frontier = append(frontier, normalized)
		}

		c.pauser.Pause(ctx, c.delay)
	}

	result.Duration = time.Since(start)
	c.logger.Info("crawl finished",
		zap.String("seed", seedURL),
		zap.Int("pages", len(result.Pages)),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
