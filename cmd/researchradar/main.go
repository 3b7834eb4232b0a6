// Package main wires together the research signal ingestion service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"researchradar/internal/api"
	"researchradar/internal/config"
	"researchradar/internal/ingest"
	"researchradar/internal/logging"
	"researchradar/internal/metrics"
	"researchradar/internal/retention"
	"researchradar/internal/source"
	"researchradar/internal/store"
	"researchradar/internal/taxonomy"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	refresh := flag.String("refresh", "", "Run one ingest pass (papers|posts|company|all) and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	if err := store.RunMigrations(cfg.DB.DSN); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	st := store.NewPostgres(pool, logger.Named("store"))
	tax, err := taxonomy.Default()
	if err != nil {
		logger.Fatal("taxonomy load failed", zap.Error(err))
	}

	timeout := cfg.HTTPTimeout()
	srcs := ingest.Sources{
		Arxiv:           source.NewArxiv("", timeout),
		OpenReview:      source.NewOpenReview("", timeout, nil),
		SemanticScholar: source.NewSemanticScholar("", timeout),
		HackerNews:      source.NewHackerNews("", timeout),
		Reddit:          source.NewReddit("", timeout, cfg.Sources.Subreddits),
		GitHub:          source.NewGitHub("", cfg.Sources.GitHubToken, timeout),
		HuggingFace:     source.NewHuggingFace("", timeout),
		YouTube:         source.NewYouTube("", cfg.Sources.YouTubeAPIKey, timeout),
		News:            source.NewGoogleNews("", timeout, tax.CompanyQueries),
		WeChat:          source.NewWeChat(cfg.Sources.RSSHubBaseURL, timeout, nil),
	}

	pipeline := ingest.New(st, srcs, tax, ingest.Config{
		Workers:          cfg.Crawl.Workers,
		MinPerTag:        cfg.Crawl.MinPerTag,
		MaxPerTag:        cfg.Crawl.MaxPerTag,
		MaxQueriesPerTag: cfg.Crawl.MaxQueriesPerTag,
		KeywordCap:       cfg.Crawl.KeywordCap,
		PostKeywordCap:   cfg.Crawl.PostKeywordCap,
		PostQueryLimit:   cfg.Crawl.PostQueryLimit,
	}, logger.Named("ingest"))

	maint := retention.NewManager(st, retention.Policy{
		PaperDays:     cfg.Retention.PaperDays,
		CodeDays:      cfg.Retention.CodeDays,
		CommunityDays: cfg.Retention.CommunityDays,
	}, logger.Named("retention"))

	if *refresh != "" {
		if err := runOnce(ctx, pipeline, cfg, *refresh, logger); err != nil {
			logger.Fatal("refresh failed", zap.Error(err))
		}
		return
	}

	// New taxonomy entries apply to papers stored before the change.
	if n, err := pipeline.BackfillTags(ctx, false); err != nil {
		logger.Warn("startup tag backfill failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("startup tag backfill applied", zap.Int("updated", n))
	}

	apiServer := api.NewServer(pipeline, maint, tax, api.Windows{
		PaperDays: cfg.Crawl.PaperWindowDays,
		PostDays:  cfg.Crawl.PostWindowDays,
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

// runOnce executes a single ingest pass for cron-style deployments.
func runOnce(ctx context.Context, pipeline *ingest.Pipeline, cfg config.Config, which string, logger *zap.Logger) error {
	runPapers := func() error {
		res, err := pipeline.IngestPapers(ctx, cfg.Crawl.PaperWindowDays, "")
		if err != nil {
			return err
		}
		logger.Info("papers refreshed", zap.Int("inserted", res.Inserted), zap.Int("errors", len(res.Errors)))
		return nil
	}
	runPosts := func() error {
		res, err := pipeline.IngestPosts(ctx, cfg.Crawl.PostWindowDays, "", "")
		if err != nil {
			return err
		}
		logger.Info("posts refreshed", zap.Int("persisted", res.Persisted), zap.Int("errors", len(res.Errors)))
		return nil
	}
	runCompany := func() error {
		res, err := pipeline.IngestCompanyPosts(ctx, cfg.Crawl.PostWindowDays, "")
		if err != nil {
			return err
		}
		logger.Info("company posts refreshed", zap.Int("persisted", res.Persisted), zap.Int("errors", len(res.Errors)))
		return nil
	}

	switch which {
	case "papers":
		return runPapers()
	case "posts":
		return runPosts()
	case "company":
		return runCompany()
	case "all":
		for _, run := range []func() error{runPapers, runPosts, runCompany} {
			if err := run(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown refresh target %q", which)
	}
}
