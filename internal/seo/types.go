// Package seo defines the core types shared across the audit pipeline:
// issues, page audits, reports, and keyword research results.
package seo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity ranks how badly an issue hurts a page, critical being worst.
type Severity string

// Severity values, ordered critical > high > medium > low > info.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Category groups issues by the area of the page they affect.
type Category string

// Issue categories.
const (
	CategoryMetaTags    Category = "meta_tags"
	CategoryContent     Category = "content"
	CategoryStructure   Category = "structure"
	CategoryPerformance Category = "performance"
	CategoryTechnical   Category = "technical"
	CategoryLinks       Category = "links"
	CategoryMobile      Category = "mobile"
	CategorySchema      Category = "schema"
	CategoryAnalytics   Category = "analytics"
	CategorySecurity    Category = "security"
	CategoryError       Category = "error"
)

// IssueType identifies which detector produced an issue. The auto-fix
// engine dispatches remediations on this value, so it must stay stable.
type IssueType string

// Issue types emitted by the rule engine.
const (
	IssueMissingTitle            IssueType = "missing_title"
	IssueTitleTooShort           IssueType = "title_too_short"
	IssueTitleTooLong            IssueType = "title_too_long"
	IssueMissingMetaDescription  IssueType = "missing_meta_description"
	IssueMetaDescriptionTooShort IssueType = "meta_description_too_short"
	IssueMetaDescriptionTooLong  IssueType = "meta_description_too_long"
	IssueMissingCanonical        IssueType = "missing_canonical"
	IssueMissingViewport         IssueType = "missing_viewport"
	IssueViewportNotResponsive   IssueType = "viewport_not_responsive"
	IssueMissingH1               IssueType = "missing_h1"
	IssueMultipleH1              IssueType = "multiple_h1"
	IssueHeadingHierarchySkip    IssueType = "heading_hierarchy_skip"
	IssueImageMissingAlt         IssueType = "image_missing_alt"
	IssueImageAltTooLong         IssueType = "image_alt_too_long"
	IssueImageMissingDimensions  IssueType = "image_missing_dimensions"
	IssueLinkEmptyHref           IssueType = "link_empty_href"
	IssueLinkGenericText         IssueType = "link_generic_text"
	IssueLinkMissingNoopener     IssueType = "link_missing_noopener"
	IssueMissingStructuredData   IssueType = "missing_structured_data"
	IssueCrawlError              IssueType = "crawl_error"
)

// FixStatus tracks an issue through the auto-fix state machine.
type FixStatus string

// Fix statuses: pending -> in_progress -> fixed | failed | not_applicable.
const (
	FixStatusPending       FixStatus = "pending"
	FixStatusInProgress    FixStatus = "in_progress"
	FixStatusFixed         FixStatus = "fixed"
	FixStatusFailed        FixStatus = "failed"
	FixStatusNotApplicable FixStatus = "not_applicable"
)

// fixableCategories are the issue categories the auto-fix engine will
// attempt. Performance and mobile issues need human judgment.
var fixableCategories = map[Category]bool{
	CategoryMetaTags:  true,
	CategoryLinks:     true,
	CategorySchema:    true,
	CategoryStructure: true,
}

// InFixableCategory reports whether the auto-fix engine may attempt
// issues in the given category.
func InFixableCategory(c Category) bool {
	return fixableCategories[c]
}

// SeverityRank orders severities for sorting, critical first.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// NewIssueID produces an id of the form {type}_{8 hex chars}. The type
// prefix is load-bearing: it survives persistence and lets the fix engine
// recover the issue type from the id alone.
func NewIssueID(t IssueType) string {
	return fmt.Sprintf("%s_%s", t, uuid.NewString()[:8])
}

// Issue is a single detected SEO defect. Issues are soft-state: they are
// never deleted, only marked fixed or ignored, which is what makes
// report-to-report diffing possible.
type Issue struct {
	ID             string     `json:"id"`
	Type           IssueType  `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Severity       Severity   `json:"severity"`
	Category       Category   `json:"category"`
	URL            string     `json:"url,omitempty"`
	Element        string     `json:"element,omitempty"`
	RecommendedFix string     `json:"recommended_fix,omitempty"`
	AutoFixable    bool       `json:"auto_fixable"`
	FixStatus      FixStatus  `json:"fix_status,omitempty"`
	LastFixAttempt *time.Time `json:"last_fix_attempt,omitempty"`
	FixMessage     string     `json:"fix_message,omitempty"`
	ReportID       string     `json:"report_id,omitempty"`
	DetectedAt     time.Time  `json:"detected_at"`
	FixedAt        *time.Time `json:"fixed_at,omitempty"`
	Ignored        bool       `json:"ignored"`
}

// Active reports whether the issue still counts against the site. Fixed
// and ignored are independent flags; either one retires the issue.
func (i Issue) Active() bool {
	return i.FixedAt == nil && !i.Ignored
}

// IssueCounts is the severity histogram carried by audits and reports.
type IssueCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Add increments the bucket for the given severity.
func (c *IssueCounts) Add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	case SeverityInfo:
		c.Info++
	}
}

// Total returns the sum across all severity buckets.
func (c IssueCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// MetaTag is one <meta> element with both name and content attributes.
type MetaTag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Heading is one h1-h6 element in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is one anchor element found on a page.
type Link struct {
	Href     string `json:"href"`
	Resolved string `json:"resolved,omitempty"`
	Text     string `json:"text"`
	Rel      string `json:"rel,omitempty"`
	External bool   `json:"external"`
}

// Image captures the attributes the image detector cares about.
type Image struct {
	Src              string `json:"src"`
	Alt              string `json:"alt"`
	HasAlt           bool   `json:"has_alt"`
	HasWidth         bool   `json:"has_width"`
	HasHeight        bool   `json:"has_height"`
	RolePresentation bool   `json:"role_presentation"`
}

// CrawledPage is the parsed result of fetching one URL. It lives for a
// single crawl step and is never persisted directly.
type CrawledPage struct {
	URL             string    `json:"url"`
	StatusCode      int       `json:"status_code"`
	ContentType     string    `json:"content_type"`
	HTML            string    `json:"-"`
	Title           string    `json:"title"`
	MetaTags        []MetaTag `json:"meta_tags"`
	MetaDescription string    `json:"meta_description"`
	CanonicalURL    string    `json:"canonical_url,omitempty"`
	H1s             []string  `json:"h1s"`
	Headings        []Heading `json:"headings"`
	Links           []Link    `json:"links"`
	Images          []Image   `json:"images"`
	WordCount       int       `json:"word_count"`
	HasJSONLD       bool      `json:"has_json_ld"`
}

// PageAudit is one page's audit snapshot. A later audit of the same URL
// supersedes an earlier one; consumers take the most recent by timestamp.
type PageAudit struct {
	URL             string      `json:"url"`
	Title           string      `json:"title"`
	MetaDescription string      `json:"meta_description"`
	H1s             []string    `json:"h1s"`
	WordCount       int         `json:"word_count"`
	Counts          IssueCounts `json:"issue_counts"`
	Issues          []Issue     `json:"issues"`
	Score           int         `json:"score"`
	AuditedAt       time.Time   `json:"audited_at"`
}

// ReportStatus marks whether a report's background crawl has finished.
type ReportStatus string

// Report statuses.
const (
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusCompleted  ReportStatus = "completed"
)

// Report is the persisted rollup of one crawl. It is created as a
// placeholder before the crawl starts so callers get an id immediately,
// then updated in place when the background crawl completes.
type Report struct {
	ID          string               `json:"id"`
	Date        time.Time            `json:"date"`
	Status      ReportStatus         `json:"status"`
	Counts      IssueCounts          `json:"total_issues"`
	NewIssues   int                  `json:"new_issues"`
	FixedIssues int                  `json:"fixed_issues"`
	Score       int                  `json:"overall_score"`
	TopFixes    []Issue              `json:"top_priority_fixes"`
	Keywords    []KeywordRanking     `json:"keyword_rankings,omitempty"`
	Suggestions []ContentSuggestion  `json:"content_suggestions,omitempty"`
	Performance *PerformanceSnapshot `json:"performance,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// KeywordRanking is keyword metadata from a DataProvider. The default
// provider synthesizes it deterministically; a live API can substitute.
type KeywordRanking struct {
	Keyword      string    `json:"keyword"`
	SearchVolume int       `json:"search_volume"`
	Difficulty   int       `json:"difficulty"`
	Relevance    int       `json:"relevance"`
	Position     int       `json:"position"`
	Trend        string    `json:"trend"`
	Related      []string  `json:"related_keywords,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// ContentSuggestion is a proposed content topic derived from keyword
// clustering. Mutated only to set the implemented timestamp.
type ContentSuggestion struct {
	Topic          string     `json:"topic"`
	SearchVolume   int        `json:"search_volume"`
	AvgDifficulty  int        `json:"avg_difficulty"`
	SuggestedTitle string     `json:"suggested_title"`
	Subheadings    []string   `json:"subheadings,omitempty"`
	TargetKeywords []string   `json:"target_keywords,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ImplementedAt  *time.Time `json:"implemented_at,omitempty"`
}

// PerformanceSnapshot is a placeholder for future Lighthouse-style
// metrics; only page totals are populated today.
type PerformanceSnapshot struct {
	PagesCrawled  int   `json:"pages_crawled"`
	AvgFetchMs    int64 `json:"avg_fetch_ms"`
	FailedFetches int   `json:"failed_fetches"`
}
