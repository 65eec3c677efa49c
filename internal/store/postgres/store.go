// Package postgres provides a Postgres-backed Store using pgxpool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store on Postgres.
type Store struct {
	pool dbPool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// parseIssueCounts decodes a total_issues column defensively: depending
// on the driver and how the row was written it may arrive as a JSON
// object or as a doubly-encoded JSON string.
func parseIssueCounts(raw []byte) (seo.IssueCounts, error) {
	var counts seo.IssueCounts
	if len(raw) == 0 {
		return counts, nil
	}
	if err := json.Unmarshal(raw, &counts); err == nil {
		return counts, nil
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err != nil {
		return counts, fmt.Errorf("decode issue counts: %w", err)
	}
	if err := json.Unmarshal([]byte(nested), &counts); err != nil {
		return counts, fmt.Errorf("decode nested issue counts: %w", err)
	}
	return counts, nil
}

const reportColumns = `id, report_date, status, total_issues, new_issues, fixed_issues,
	overall_score, top_fixes, keywords, suggestions, performance, created_at, updated_at`

// CreateReport inserts a report row.
func (s *Store) CreateReport(ctx context.Context, report seo.Report) error {
	args, err := reportArgs(report)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO reports (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`, reportColumns)
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// UpdateReport rewrites a report row in place.
func (s *Store) UpdateReport(ctx context.Context, report seo.Report) error {
	report.UpdatedAt = time.Now().UTC()
	args, err := reportArgs(report)
	if err != nil {
		return err
	}
	query := `
UPDATE reports SET
	report_date = $2, status = $3, total_issues = $4, new_issues = $5,
	fixed_issues = $6, overall_score = $7, top_fixes = $8, keywords = $9,
	suggestions = $10, performance = $11, created_at = $12, updated_at = $13
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetReport fetches a report by id.
func (s *Store) GetReport(ctx context.Context, id string) (seo.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id = $1`, reportColumns)
	return s.scanReport(s.pool.QueryRow(ctx, query, id))
}

// LatestReport returns the most recently created report.
func (s *Store) LatestReport(ctx context.Context) (seo.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports ORDER BY created_at DESC LIMIT 1`, reportColumns)
	return s.scanReport(s.pool.QueryRow(ctx, query))
}

func reportArgs(report seo.Report) ([]any, error) {
	counts, err := json.Marshal(report.Counts)
	if err != nil {
		return nil, fmt.Errorf("marshal issue counts: %w", err)
	}
	topFixes, err := json.Marshal(report.TopFixes)
	if err != nil {
		return nil, fmt.Errorf("marshal top fixes: %w", err)
	}
	keywords, err := json.Marshal(report.Keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}
	suggestions, err := json.Marshal(report.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("marshal suggestions: %w", err)
	}
	performance, err := json.Marshal(report.Performance)
	if err != nil {
		return nil, fmt.Errorf("marshal performance: %w", err)
	}
	return []any{
		report.ID,
		report.Date,
		string(report.Status),
		counts,
		report.NewIssues,
		report.FixedIssues,
		report.Score,
		topFixes,
		keywords,
		suggestions,
		performance,
		report.CreatedAt,
		report.UpdatedAt,
	}, nil
}

func (s *Store) scanReport(row pgx.Row) (seo.Report, error) {
	var (
		report      seo.Report
		status      string
		counts      []byte
		topFixes    []byte
		keywords    []byte
		suggestions []byte
		performance []byte
	)
	err := row.Scan(
		&report.ID, &report.Date, &status, &counts, &report.NewIssues,
		&report.FixedIssues, &report.Score, &topFixes, &keywords,
		&suggestions, &performance, &report.CreatedAt, &report.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return seo.Report{}, store.ErrNotFound
	}
	if err != nil {
		return seo.Report{}, fmt.Errorf("scan report: %w", err)
	}
	report.Status = seo.ReportStatus(status)
	if report.Counts, err = parseIssueCounts(counts); err != nil {
		return seo.Report{}, err
	}
	if err := unmarshalInto(topFixes, &report.TopFixes); err != nil {
		return seo.Report{}, err
	}
	if err := unmarshalInto(keywords, &report.Keywords); err != nil {
		return seo.Report{}, err
	}
	if err := unmarshalInto(suggestions, &report.Suggestions); err != nil {
		return seo.Report{}, err
	}
	if err := unmarshalInto(performance, &report.Performance); err != nil {
		return seo.Report{}, err
	}
	return report, nil
}

func unmarshalInto(raw []byte, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode report field: %w", err)
	}
	return nil
}

// SavePageAudit inserts an audit snapshot row.
func (s *Store) SavePageAudit(ctx context.Context, audit seo.PageAudit) error {
	h1s, err := json.Marshal(audit.H1s)
	if err != nil {
		return fmt.Errorf("marshal h1s: %w", err)
	}
	counts, err := json.Marshal(audit.Counts)
	if err != nil {
		return fmt.Errorf("marshal issue counts: %w", err)
	}
	issues, err := json.Marshal(audit.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	query := `
INSERT INTO page_audits (url, title, meta_description, h1s, word_count, issue_counts, issues, score, audited_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := s.pool.Exec(ctx, query,
		audit.URL, audit.Title, audit.MetaDescription, h1s,
		audit.WordCount, counts, issues, audit.Score, audit.AuditedAt,
	); err != nil {
		return fmt.Errorf("insert page audit: %w", err)
	}
	return nil
}

// ListPageAudits returns the most recent audit per URL, newest first.
func (s *Store) ListPageAudits(ctx context.Context) ([]seo.PageAudit, error) {
	query := `
SELECT DISTINCT ON (url)
	url, title, meta_description, h1s, word_count, issue_counts, issues, score, audited_at
FROM page_audits
ORDER BY url, audited_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query page audits: %w", err)
	}
	defer rows.Close()

	var audits []seo.PageAudit
	for rows.Next() {
		var (
			audit  seo.PageAudit
			h1s    []byte
			counts []byte
			issues []byte
		)
		if err := rows.Scan(
			&audit.URL, &audit.Title, &audit.MetaDescription, &h1s,
			&audit.WordCount, &counts, &issues, &audit.Score, &audit.AuditedAt,
		); err != nil {
			return nil, fmt.Errorf("scan page audit: %w", err)
		}
		if err := unmarshalInto(h1s, &audit.H1s); err != nil {
			return nil, err
		}
		if audit.Counts, err = parseIssueCounts(counts); err != nil {
			return nil, err
		}
		if err := unmarshalInto(issues, &audit.Issues); err != nil {
			return nil, err
		}
		audits = append(audits, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page audits: %w", err)
	}
	return audits, nil
}

const issueColumns = `id, issue_type, title, description, severity, category, url, element,
	recommended_fix, auto_fixable, fix_status, last_fix_attempt, fix_message,
	report_id, detected_at, fixed_at, ignored`

// SaveIssues inserts issue rows, ignoring ids that already exist.
func (s *Store) SaveIssues(ctx context.Context, issues []seo.Issue) error {
	query := fmt.Sprintf(`
INSERT INTO issues (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (id) DO NOTHING`, issueColumns)
	for _, iss := range issues {
		if _, err := s.pool.Exec(ctx, query,
			iss.ID, string(iss.Type), iss.Title, iss.Description,
			string(iss.Severity), string(iss.Category), iss.URL, iss.Element,
			iss.RecommendedFix, iss.AutoFixable, string(iss.FixStatus),
			iss.LastFixAttempt, iss.FixMessage, iss.ReportID,
			iss.DetectedAt, iss.FixedAt, iss.Ignored,
		); err != nil {
			return fmt.Errorf("insert issue %s: %w", iss.ID, err)
		}
	}
	return nil
}

// GetIssue fetches one issue by id.
func (s *Store) GetIssue(ctx context.Context, id string) (seo.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM issues WHERE id = $1`, issueColumns)
	iss, err := scanIssue(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return seo.Issue{}, store.ErrNotFound
	}
	return iss, err
}

// UpdateIssue rewrites the mutable fix/ignore state of an issue.
func (s *Store) UpdateIssue(ctx context.Context, issue seo.Issue) error {
	query := `
UPDATE issues SET
	fix_status = $2, last_fix_attempt = $3, fix_message = $4, fixed_at = $5, ignored = $6
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		issue.ID, string(issue.FixStatus), issue.LastFixAttempt,
		issue.FixMessage, issue.FixedAt, issue.Ignored,
	)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListActiveIssues returns unfixed, unignored issues in detection order.
func (s *Store) ListActiveIssues(ctx context.Context) ([]seo.Issue, error) {
	query := fmt.Sprintf(`
SELECT %s FROM issues
WHERE fixed_at IS NULL AND NOT ignored
ORDER BY detected_at`, issueColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active issues: %w", err)
	}
	defer rows.Close()

	var issues []seo.Issue
	for rows.Next() {
		iss, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, iss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

func scanIssue(row pgx.Row) (seo.Issue, error) {
	var (
		iss                            seo.Issue
		typ, severity, category, fixst string
	)
	err := row.Scan(
		&iss.ID, &typ, &iss.Title, &iss.Description, &severity, &category,
		&iss.URL, &iss.Element, &iss.RecommendedFix, &iss.AutoFixable,
		&fixst, &iss.LastFixAttempt, &iss.FixMessage, &iss.ReportID,
		&iss.DetectedAt, &iss.FixedAt, &iss.Ignored,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return seo.Issue{}, err
		}
		return seo.Issue{}, fmt.Errorf("scan issue: %w", err)
	}
	iss.Type = seo.IssueType(typ)
	iss.Severity = seo.Severity(severity)
	iss.Category = seo.Category(category)
	iss.FixStatus = seo.FixStatus(fixst)
	return iss, nil
}

// ReplaceKeywordRankings swaps the keyword snapshot in one transaction-free
// truncate-and-insert pass; rankings are a derived cache, not a ledger.
func (s *Store) ReplaceKeywordRankings(ctx context.Context, rankings []seo.KeywordRanking) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM keyword_rankings`); err != nil {
		return fmt.Errorf("clear keyword rankings: %w", err)
	}
	query := `
INSERT INTO keyword_rankings (keyword, search_volume, difficulty, relevance, position, trend, related, checked_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, k := range rankings {
		related, err := json.Marshal(k.Related)
		if err != nil {
			return fmt.Errorf("marshal related keywords: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query,
			k.Keyword, k.SearchVolume, k.Difficulty, k.Relevance,
			k.Position, k.Trend, related, k.CheckedAt,
		); err != nil {
			return fmt.Errorf("insert keyword ranking: %w", err)
		}
	}
	return nil
}

// ListKeywordRankings returns the keyword snapshot by descending volume.
func (s *Store) ListKeywordRankings(ctx context.Context) ([]seo.KeywordRanking, error) {
	query := `
SELECT keyword, search_volume, difficulty, relevance, position, trend, related, checked_at
FROM keyword_rankings
ORDER BY search_volume DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query keyword rankings: %w", err)
	}
	defer rows.Close()

	var rankings []seo.KeywordRanking
	for rows.Next() {
		var (
			k       seo.KeywordRanking
			related []byte
		)
		if err := rows.Scan(
			&k.Keyword, &k.SearchVolume, &k.Difficulty, &k.Relevance,
			&k.Position, &k.Trend, &related, &k.CheckedAt,
		); err != nil {
			return nil, fmt.Errorf("scan keyword ranking: %w", err)
		}
		if err := unmarshalInto(related, &k.Related); err != nil {
			return nil, err
		}
		rankings = append(rankings, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rankings: %w", err)
	}
	return rankings, nil
}

// ReplaceContentSuggestions swaps the suggestion snapshot.
func (s *Store) ReplaceContentSuggestions(ctx context.Context, suggestions []seo.ContentSuggestion) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM content_suggestions`); err != nil {
		return fmt.Errorf("clear content suggestions: %w", err)
	}
	query := `
INSERT INTO content_suggestions (topic, search_volume, avg_difficulty, suggested_title, subheadings, target_keywords, created_at, implemented_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, c := range suggestions {
		subheadings, err := json.Marshal(c.Subheadings)
		if err != nil {
			return fmt.Errorf("marshal subheadings: %w", err)
		}
		targets, err := json.Marshal(c.TargetKeywords)
		if err != nil {
			return fmt.Errorf("marshal target keywords: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query,
			c.Topic, c.SearchVolume, c.AvgDifficulty, c.SuggestedTitle,
			subheadings, targets, c.CreatedAt, c.ImplementedAt,
		); err != nil {
			return fmt.Errorf("insert content suggestion: %w", err)
		}
	}
	return nil
}

// ListContentSuggestions returns the suggestion snapshot by descending volume.
func (s *Store) ListContentSuggestions(ctx context.Context) ([]seo.ContentSuggestion, error) {
	query := `
SELECT topic, search_volume, avg_difficulty, suggested_title, subheadings, target_keywords, created_at, implemented_at
FROM content_suggestions
ORDER BY search_volume DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query content suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []seo.ContentSuggestion
	for rows.Next() {
		var (
			c           seo.ContentSuggestion
			subheadings []byte
			targets     []byte
		)
		if err := rows.Scan(
			&c.Topic, &c.SearchVolume, &c.AvgDifficulty, &c.SuggestedTitle,
			&subheadings, &targets, &c.CreatedAt, &c.ImplementedAt,
		); err != nil {
			return nil, fmt.Errorf("scan content suggestion: %w", err)
		}
		if err := unmarshalInto(subheadings, &c.Subheadings); err != nil {
			return nil, err
		}
		if err := unmarshalInto(targets, &c.TargetKeywords); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content suggestions: %w", err)
	}
	return suggestions, nil
}
