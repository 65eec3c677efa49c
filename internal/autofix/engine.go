// Package autofix attempts automated remediation of detected issues. It
// re-fetches the page before every attempt so it never fixes a defect
// that has already been resolved out of band.
package autofix

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/fetch"
	"github.com/crawlworks/seoaudit/internal/metrics"
	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store"
)

const maxAttempts = 3

// FixResult is the outcome of one fix attempt.
type FixResult struct {
	IssueID string        `json:"issue_id"`
	Status  seo.FixStatus `json:"status"`
	Message string        `json:"message"`
}

// Engine drives the fix state machine: pending -> in_progress ->
// fixed | failed | not_applicable. Attempts are capped per issue.
type Engine struct {
	store     store.Store
	fetcher   fetch.Fetcher
	publisher Publisher
	logger    *zap.Logger

	mu       sync.Mutex
	attempts map[string]int
}

// NewEngine constructs an Engine. A nil publisher gets the in-memory
// default.
func NewEngine(st store.Store, fetcher fetch.Fetcher, publisher Publisher, logger *zap.Logger) *Engine {
	if publisher == nil {
		publisher = NewMemoryPublisher()
	}
	return &Engine{
		store:     st,
		fetcher:   fetcher,
		publisher: publisher,
		logger:    logger,
		attempts:  make(map[string]int),
	}
}

// FixableIssues returns the active issues the engine is willing to
// attempt, in detection order.
func (e *Engine) FixableIssues(ctx context.Context) ([]seo.Issue, error) {
	active, err := e.store.ListActiveIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active issues: %w", err)
	}
	var fixable []seo.Issue
	for _, iss := range active {
		if iss.AutoFixable && seo.InFixableCategory(iss.Category) {
			fixable = append(fixable, iss)
		}
	}
	return fixable, nil
}

// FixIssue attempts to remediate a single issue by id.
func (e *Engine) FixIssue(ctx context.Context, id string) (FixResult, error) {
	iss, err := e.store.GetIssue(ctx, id)
	if err != nil {
		return FixResult{}, err
	}

	// Retired issues are left untouched; the stored row keeps whatever
	// terminal status it reached.
	if iss.FixedAt != nil {
		return FixResult{IssueID: id, Status: seo.FixStatusNotApplicable, Message: "issue is already fixed"}, nil
	}
	if iss.Ignored {
		return FixResult{IssueID: id, Status: seo.FixStatusNotApplicable, Message: "issue is ignored"}, nil
	}
	if !seo.InFixableCategory(iss.Category) {
		return e.finish(ctx, iss, seo.FixStatusNotApplicable,
			fmt.Sprintf("issues in category %q are not auto-fixable", iss.Category), false)
	}

	e.mu.Lock()
	e.attempts[id]++
	attempt := e.attempts[id]
	e.mu.Unlock()
	if attempt > maxAttempts {
		return e.finish(ctx, iss, seo.FixStatusFailed,
			fmt.Sprintf("gave up after %d attempts", maxAttempts), false)
	}

	metrics.FixAttempts.Inc()
	now := time.Now().UTC()
	iss.FixStatus = seo.FixStatusInProgress
	iss.LastFixAttempt = &now
	if err := e.store.UpdateIssue(ctx, iss); err != nil {
		return FixResult{}, fmt.Errorf("mark issue in progress: %w", err)
	}

	rem, ok := remediations[iss.Type]
	if !ok {
		return e.finish(ctx, iss, seo.FixStatusNotApplicable,
			fmt.Sprintf("no automated rewrite for %s; manual change required", iss.Type), false)
	}

	page, err := e.fetcher.Fetch(ctx, iss.URL)
	if err != nil {
		return e.finish(ctx, iss, seo.FixStatusFailed,
			fmt.Sprintf("refetch failed: %v", err), false)
	}
	if page == nil {
		return e.finish(ctx, iss, seo.FixStatusFailed, "page is no longer HTML", false)
	}

	// Idempotence guard: the defect may have been fixed since detection.
	if !rem.Applies(page) {
		return e.finish(ctx, iss, seo.FixStatusNotApplicable,
			"defect is no longer present on the page", true)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return e.finish(ctx, iss, seo.FixStatusFailed,
			fmt.Sprintf("parse page: %v", err), false)
	}
	message, err := rem.Apply(doc, page)
	if err != nil {
		return e.finish(ctx, iss, seo.FixStatusFailed,
			fmt.Sprintf("apply fix: %v", err), false)
	}
	html, err := doc.Html()
	if err != nil {
		return e.finish(ctx, iss, seo.FixStatusFailed,
			fmt.Sprintf("render page: %v", err), false)
	}
	if err := e.publisher.Publish(ctx, iss.URL, html); err != nil {
		return e.finish(ctx, iss, seo.FixStatusFailed,
			fmt.Sprintf("publish page: %v", err), false)
	}

	metrics.FixesSucceeded.Inc()
	e.logger.Info("issue fixed",
		zap.String("issue_id", id),
		zap.String("type", string(iss.Type)),
		zap.String("url", iss.URL),
	)
	return e.finish(ctx, iss, seo.FixStatusFixed, message, true)
}

// finish persists a terminal status. retire additionally stamps FixedAt,
// removing the issue from the active set.
func (e *Engine) finish(ctx context.Context, iss seo.Issue, status seo.FixStatus, message string, retire bool) (FixResult, error) {
	now := time.Now().UTC()
	iss.FixStatus = status
	iss.FixMessage = message
	iss.LastFixAttempt = &now
	if retire {
		iss.FixedAt = &now
	}
	if err := e.store.UpdateIssue(ctx, iss); err != nil {
		return FixResult{}, fmt.Errorf("persist fix outcome: %w", err)
	}
	return FixResult{IssueID: iss.ID, Status: status, Message: message}, nil
}

// FixAll attempts every fixable issue once and returns the per-issue
// outcomes. Individual failures do not stop the sweep.
func (e *Engine) FixAll(ctx context.Context) ([]FixResult, error) {
	fixable, err := e.FixableIssues(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]FixResult, 0, len(fixable))
	for _, iss := range fixable {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.FixIssue(ctx, iss.ID)
		if err != nil {
			e.logger.Warn("fix attempt errored",
				zap.String("issue_id", iss.ID),
				zap.Error(err),
			)
			res = FixResult{IssueID: iss.ID, Status: seo.FixStatusFailed, Message: err.Error()}
		}
		results = append(results, res)
	}
	return results, nil
}
