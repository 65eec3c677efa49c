package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/api"
	"github.com/crawlworks/seoaudit/internal/autofix"
	"github.com/crawlworks/seoaudit/internal/config"
	"github.com/crawlworks/seoaudit/internal/crawl"
	"github.com/crawlworks/seoaudit/internal/fetch"
	"github.com/crawlworks/seoaudit/internal/keywords"
	"github.com/crawlworks/seoaudit/internal/report"
	"github.com/crawlworks/seoaudit/internal/rules"
	"github.com/crawlworks/seoaudit/internal/store"
	"github.com/crawlworks/seoaudit/internal/store/memory"
	"github.com/crawlworks/seoaudit/internal/store/postgres"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP audit service.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadDeps()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher, err := fetch.NewCollyFetcher(fetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("build fetcher: %w", err)
	}

	crawler := crawl.New(fetcher, cfg.CrawlDelay(), logger)
	kw := keywords.NewService(nil, st, logger)
	runner := report.NewRunner(st, crawler, rules.NewEngine(), kw, logger, report.Config{
		DefaultPages: cfg.Crawler.DefaultPages,
	})
	fixer := autofix.NewEngine(st, fetcher, nil, logger)

	server := api.NewServer(st, runner, fixer, kw, logger, api.Config{
		RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		MaxPagesLimit:  cfg.Crawler.MaxPagesLimit,
		DefaultPages:   cfg.Crawler.DefaultPages,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect store: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return pg, pg.Close, nil
	default:
		return memory.New(), func() {}, nil
	}
}
