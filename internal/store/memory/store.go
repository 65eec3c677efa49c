// Package memory provides an in-memory Store for development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu          sync.RWMutex
	reports     map[string]seo.Report
	audits      []seo.PageAudit
	issues      map[string]seo.Issue
	issueOrder  []string
	keywords    []seo.KeywordRanking
	suggestions []seo.ContentSuggestion
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		reports: make(map[string]seo.Report),
		issues:  make(map[string]seo.Issue),
	}
}

// CreateReport stores a new report row.
func (s *Store) CreateReport(_ context.Context, report seo.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return errors.New("report already exists")
	}
	s.reports[report.ID] = report
	return nil
}

// UpdateReport replaces an existing report row in place.
func (s *Store) UpdateReport(_ context.Context, report seo.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; !ok {
		return store.ErrNotFound
	}
	report.UpdatedAt = time.Now().UTC()
	s.reports[report.ID] = report
	return nil
}

// GetReport fetches a report by id.
func (s *Store) GetReport(_ context.Context, id string) (seo.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return seo.Report{}, store.ErrNotFound
	}
	return report, nil
}

// LatestReport returns the most recently created report.
func (s *Store) LatestReport(_ context.Context) (seo.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest seo.Report
	found := false
	for _, r := range s.reports {
		if !found || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
			found = true
		}
	}
	if !found {
		return seo.Report{}, store.ErrNotFound
	}
	return latest, nil
}

// SavePageAudit appends an audit snapshot.
func (s *Store) SavePageAudit(_ context.Context, audit seo.PageAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, audit)
	return nil
}

// ListPageAudits returns the most recent audit per URL, newest first.
func (s *Store) ListPageAudits(_ context.Context) ([]seo.PageAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[string]seo.PageAudit)
	for _, a := range s.audits {
		if prev, ok := latest[a.URL]; !ok || a.AuditedAt.After(prev.AuditedAt) {
			latest[a.URL] = a
		}
	}
	out := make([]seo.PageAudit, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AuditedAt.After(out[j].AuditedAt)
	})
	return out, nil
}

// SaveIssues appends issue rows, preserving insertion order.
func (s *Store) SaveIssues(_ context.Context, issues []seo.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, iss := range issues {
		if _, exists := s.issues[iss.ID]; !exists {
			s.issueOrder = append(s.issueOrder, iss.ID)
		}
		s.issues[iss.ID] = iss
	}
	return nil
}

// GetIssue fetches one issue by id.
func (s *Store) GetIssue(_ context.Context, id string) (seo.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iss, ok := s.issues[id]
	if !ok {
		return seo.Issue{}, store.ErrNotFound
	}
	return iss, nil
}

// UpdateIssue replaces an issue row in place.
func (s *Store) UpdateIssue(_ context.Context, issue seo.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.ID]; !ok {
		return store.ErrNotFound
	}
	s.issues[issue.ID] = issue
	return nil
}

// ListActiveIssues returns issues that are neither fixed nor ignored.
func (s *Store) ListActiveIssues(_ context.Context) ([]seo.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []seo.Issue
	for _, id := range s.issueOrder {
		if iss := s.issues[id]; iss.Active() {
			out = append(out, iss)
		}
	}
	return out, nil
}

// ReplaceKeywordRankings swaps the keyword snapshot wholesale.
func (s *Store) ReplaceKeywordRankings(_ context.Context, rankings []seo.KeywordRanking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append([]seo.KeywordRanking(nil), rankings...)
	return nil
}

// ListKeywordRankings returns the current keyword snapshot.
func (s *Store) ListKeywordRankings(_ context.Context) ([]seo.KeywordRanking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]seo.KeywordRanking(nil), s.keywords...), nil
}

// ReplaceContentSuggestions swaps the suggestion snapshot wholesale.
func (s *Store) ReplaceContentSuggestions(_ context.Context, suggestions []seo.ContentSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append([]seo.ContentSuggestion(nil), suggestions...)
	return nil
}

// ListContentSuggestions returns the current suggestion snapshot.
func (s *Store) ListContentSuggestions(_ context.Context) ([]seo.ContentSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]seo.ContentSuggestion(nil), s.suggestions...), nil
}
