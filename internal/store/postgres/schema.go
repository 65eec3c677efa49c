package postgres

import (
	"context"
	"fmt"
)

// schema is applied at startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		report_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		total_issues JSONB NOT NULL DEFAULT '{}',
		new_issues INT NOT NULL DEFAULT 0,
		fixed_issues INT NOT NULL DEFAULT 0,
		overall_score INT NOT NULL DEFAULT 0,
		top_fixes JSONB,
		keywords JSONB,
		suggestions JSONB,
		performance JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS page_audits (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		meta_description TEXT NOT NULL DEFAULT '',
		h1s JSONB,
		word_count INT NOT NULL DEFAULT 0,
		issue_counts JSONB NOT NULL DEFAULT '{}',
		issues JSONB,
		score INT NOT NULL DEFAULT 0,
		audited_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_audits_url_time ON page_audits (url, audited_at DESC)`,
	`CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		issue_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		element TEXT NOT NULL DEFAULT '',
		recommended_fix TEXT NOT NULL DEFAULT '',
		auto_fixable BOOLEAN NOT NULL DEFAULT FALSE,
		fix_status TEXT NOT NULL DEFAULT 'pending',
		last_fix_attempt TIMESTAMPTZ,
		fix_message TEXT NOT NULL DEFAULT '',
		report_id TEXT NOT NULL DEFAULT '',
		detected_at TIMESTAMPTZ NOT NULL,
		fixed_at TIMESTAMPTZ,
		ignored BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issues_active ON issues (detected_at) WHERE fixed_at IS NULL AND NOT ignored`,
	`CREATE TABLE IF NOT EXISTS keyword_rankings (
		keyword TEXT PRIMARY KEY,
		search_volume INT NOT NULL DEFAULT 0,
		difficulty INT NOT NULL DEFAULT 0,
		relevance INT NOT NULL DEFAULT 0,
		position INT NOT NULL DEFAULT 0,
		trend TEXT NOT NULL DEFAULT '',
		related JSONB,
		checked_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS content_suggestions (
		topic TEXT PRIMARY KEY,
		search_volume INT NOT NULL DEFAULT 0,
		avg_difficulty INT NOT NULL DEFAULT 0,
		suggested_title TEXT NOT NULL DEFAULT '',
		subheadings JSONB,
		target_keywords JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		implemented_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates all tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
