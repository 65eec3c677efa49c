// Package store defines the persistence interface for reports, audits,
// issues, and keyword research results. Interfaces decouple the pipeline
// from the backing database so tests can run against memory.
package store

import (
	"context"
	"errors"

	"github.com/crawlworks/seoaudit/internal/seo"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store persists all audit entities. Issue rows are append-only and
// updated in place only for fix/ignore state; they are never deleted.
type Store interface {
	CreateReport(ctx context.Context, report seo.Report) error
	UpdateReport(ctx context.Context, report seo.Report) error
	GetReport(ctx context.Context, id string) (seo.Report, error)
	LatestReport(ctx context.Context) (seo.Report, error)

	SavePageAudit(ctx context.Context, audit seo.PageAudit) error
	ListPageAudits(ctx context.Context) ([]seo.PageAudit, error)

	SaveIssues(ctx context.Context, issues []seo.Issue) error
	GetIssue(ctx context.Context, id string) (seo.Issue, error)
	UpdateIssue(ctx context.Context, issue seo.Issue) error
	ListActiveIssues(ctx context.Context) ([]seo.Issue, error)

	ReplaceKeywordRankings(ctx context.Context, rankings []seo.KeywordRanking) error
	ListKeywordRankings(ctx context.Context) ([]seo.KeywordRanking, error)
	ReplaceContentSuggestions(ctx context.Context, suggestions []seo.ContentSuggestion) error
	ListContentSuggestions(ctx context.Context) ([]seo.ContentSuggestion, error)
}
