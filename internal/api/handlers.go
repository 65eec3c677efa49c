package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/seo"
	"github.com/crawlworks/seoaudit/internal/store"
)

// issueIDPattern matches ids minted by the rule engine: a lowercase
// snake_case issue type followed by an 8-hex-digit suffix.
var issueIDPattern = regexp.MustCompile(`^[a-z0-9_]+_[0-9a-f]{8}$`)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) test(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "seo audit service is running",
	})
}

type crawlRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be absolute http or https")
		return
	}
	if req.MaxPages < 0 {
		writeError(w, http.StatusBadRequest, "max_pages must not be negative")
		return
	}
	if req.MaxPages > s.cfg.MaxPagesLimit {
		writeError(w, http.StatusBadRequest,
			"max_pages must not exceed "+strconv.Itoa(s.cfg.MaxPagesLimit))
		return
	}
	if req.MaxPages == 0 {
		req.MaxPages = s.cfg.DefaultPages
	}

	reportID, err := s.runner.Start(r.Context(), req.URL, req.MaxPages)
	if err != nil {
		s.logger.Error("start crawl", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start crawl")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"report_id": reportID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "crawl started; poll the report for results",
	})
}

func (s *Server) latestReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.LatestReport(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no reports yet; start a crawl first")
		return
	}
	if err != nil {
		s.logger.Error("latest report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "report_id")
	if uuid.Validate(id) != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	rep, err := s.store.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.logger.Error("get report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}

func (s *Server) listAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := s.store.ListPageAudits(r.Context())
	if err != nil {
		s.logger.Error("list audits", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load audits")
		return
	}
	if audits == nil {
		audits = []seo.PageAudit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"audits":  audits,
		"count":   len(audits),
	})
}

func (s *Server) listFixableIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.fixer.FixableIssues(r.Context())
	if err != nil {
		s.logger.Error("list fixable issues", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load issues")
		return
	}
	if issues == nil {
		issues = []seo.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"issues":  issues,
		"count":   len(issues),
	})
}

func (s *Server) fixIssue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "issue_id")
	if !issueIDPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return
	}
	result, err := s.fixer.FixIssue(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if err != nil {
		s.logger.Error("fix issue", zap.String("issue_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fix attempt failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func (s *Server) fixAllIssues(w http.ResponseWriter, r *http.Request) {
	results, err := s.fixer.FixAll(r.Context())
	if err != nil {
		s.logger.Error("fix all issues", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fix sweep failed")
		return
	}
	succeeded := 0
	for _, res := range results {
		if res.Status == seo.FixStatusFixed {
			succeeded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

func (s *Server) topKeywords(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	minVolume := queryInt(r, "min_volume", 0)
	rankings, err := s.keywords.TopKeywords(r.Context(), limit, minVolume)
	if err != nil {
		s.logger.Error("top keywords", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load keywords")
		return
	}
	if rankings == nil {
		rankings = []seo.KeywordRanking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"keywords": rankings,
		"count":    len(rankings),
	})
}

func (s *Server) suggestedTopics(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	minVolume := queryInt(r, "min_volume", 0)
	topics, err := s.keywords.SuggestedTopics(r.Context(), limit, minVolume)
	if err != nil {
		s.logger.Error("suggested topics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load topics")
		return
	}
	if topics == nil {
		topics = []seo.ContentSuggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"topics":  topics,
		"count":   len(topics),
	})
}

type researchRequest struct {
	Keywords []string `json:"keywords"`
}

func (s *Server) researchKeywords(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rankings, suggestions, err := s.keywords.Research(r.Context(), req.Keywords)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.ReplaceKeywordRankings(r.Context(), rankings); err != nil {
		s.logger.Error("save keyword rankings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save research")
		return
	}
	if err := s.store.ReplaceContentSuggestions(r.Context(), suggestions); err != nil {
		s.logger.Error("save content suggestions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save research")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"keywords":    rankings,
		"suggestions": suggestions,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
