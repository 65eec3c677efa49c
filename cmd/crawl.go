package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crawlworks/seoaudit/internal/crawl"
	"github.com/crawlworks/seoaudit/internal/fetch"
	"github.com/crawlworks/seoaudit/internal/rules"
	"github.com/crawlworks/seoaudit/internal/seo"
)

type crawlSummary struct {
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	Score     int             `json:"score"`
	Counts    seo.IssueCounts `json:"issue_counts"`
	Issues    []seo.Issue     `json:"issues,omitempty"`
	WordCount int             `json:"word_count"`
}

func newCrawlCmd() *cobra.Command {
	var maxPages int
	var showIssues bool

	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site once and print per-page audit results as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadDeps()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			fetcher, err := fetch.NewCollyFetcher(fetch.Config{
				UserAgent: cfg.Crawler.UserAgent,
				Timeout:   cfg.FetchTimeout(),
			}, logger)
			if err != nil {
				return fmt.Errorf("build fetcher: %w", err)
			}

			if maxPages <= 0 {
				maxPages = cfg.Crawler.DefaultPages
			}
			if maxPages > cfg.Crawler.MaxPagesLimit {
				return fmt.Errorf("max-pages must not exceed %d", cfg.Crawler.MaxPagesLimit)
			}

			crawler := crawl.New(fetcher, cfg.CrawlDelay(), logger)
			result, err := crawler.Crawl(cmd.Context(), args[0], maxPages)
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}

			engine := rules.NewEngine()
			summaries := make([]crawlSummary, 0, len(result.Pages))
			for _, page := range result.Pages {
				issues := engine.Run(page)
				var counts seo.IssueCounts
				for _, iss := range issues {
					counts.Add(iss.Severity)
				}
				summary := crawlSummary{
					URL:       page.URL,
					Title:     page.Title,
					Score:     seo.Score(counts),
					Counts:    counts,
					WordCount: page.WordCount,
				}
				if showIssues {
					summary.Issues = issues
				}
				summaries = append(summaries, summary)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summaries); err != nil {
				return fmt.Errorf("encode output: %w", err)
			}
			for _, ce := range result.Errors {
				fmt.Fprintf(os.Stderr, "error: %s: %v\n", ce.URL, ce.Err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum pages to crawl (default from config)")
	cmd.Flags().BoolVar(&showIssues, "issues", false, "include full issue details per page")
	return cmd
}
