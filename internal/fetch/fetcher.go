// Package fetch retrieves a single URL and parses it into a CrawledPage.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/metrics"
	"github.com/crawlworks/seoaudit/internal/seo"
)

// Fetcher fetches a URL and returns the parsed page. A nil page with a
// nil error means the response was not HTML and the URL should be
// skipped; errors are reserved for network-level failures.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*seo.CrawledPage, error)
}

// Config controls the fetcher's HTTP behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// CollyFetcher implements Fetcher using a Colly collector. Any HTTP
// status is accepted so the crawler can record partial failures instead
// of aborting.
type CollyFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) (*CollyFetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "seoaudit-bot/1.0 (+https://github.com/crawlworks/seoaudit)"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &CollyFetcher{
		baseCollector: base,
		logger:        logger,
	}, nil
}

type fetchResult struct {
	statusCode  int
	contentType string
	body        []byte
	err         error
}

// Fetch retrieves rawURL and parses the response into a CrawledPage.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*seo.CrawledPage, error) {
	metrics.FetchesTotal.Inc()

	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		send(fetchResult{
			statusCode:  r.StatusCode,
			contentType: contentType,
			body:        append([]byte{}, r.Body...),
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes 4xx/5xx here; keep the body so broken pages can
		// still be audited.
		if r != nil && r.StatusCode != 0 {
			contentType := ""
			if r.Headers != nil {
				contentType = r.Headers.Get("Content-Type")
			}
			send(fetchResult{
				statusCode:  r.StatusCode,
				contentType: contentType,
				body:        append([]byte{}, r.Body...),
			})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	// Visit and Wait run off the caller's goroutine so cancellation can
	// unblock the select below. The abandoned request stays bounded by
	// the collector's own timeout.
	go func() {
		if err := collector.Visit(rawURL); err != nil {
			send(fetchResult{err: err})
			return
		}
		collector.Wait()
		send(fetchResult{err: errors.New("fetch produced no result")})
	}()

	var res fetchResult
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		metrics.FetchErrorsTotal.Inc()
		return nil, ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.err != nil {
		metrics.FetchErrorsTotal.Inc()
		return nil, res.err
	}
	if !isHTML(res.contentType) {
		f.logger.Debug("skipping non-HTML response",
			zap.String("url", rawURL),
			zap.String("content_type", res.contentType),
		)
		return nil, nil
	}
	page, err := ParsePage(rawURL, res.statusCode, res.contentType, res.body)
	if err != nil {
		metrics.FetchErrorsTotal.Inc()
		return nil, err
	}
	return page, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		// Servers that omit the header almost always serve HTML.
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
