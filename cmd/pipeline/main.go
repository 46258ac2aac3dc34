package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/classify"
	"github.com/bizscrape/grant-pipeline/internal/config"
	"github.com/bizscrape/grant-pipeline/internal/content"
	"github.com/bizscrape/grant-pipeline/internal/domain"
	"github.com/bizscrape/grant-pipeline/internal/exclude"
	"github.com/bizscrape/grant-pipeline/internal/extract"
	"github.com/bizscrape/grant-pipeline/internal/intake"
	"github.com/bizscrape/grant-pipeline/internal/llm"
	"github.com/bizscrape/grant-pipeline/internal/pipeline"
	"github.com/bizscrape/grant-pipeline/internal/storage"
)

func main() {
	siteRoot := flag.String("site-root", "", "Site root directory (overrides SITE_ROOT)")
	siteCode := flag.String("site-code", "", "Site code (overrides SITE_CODE)")
	force := flag.Bool("force", false, "Reprocess folders that already have records")
	attachForce := flag.Bool("attach-force", false, "Ignore the attachment conversion cache")
	recursive := flag.Bool("recursive", false, "Scan descendant folders recursively")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	applyFlags(cfg, *siteRoot, *siteCode, *force, *attachForce, *recursive)

	if cfg.SiteRoot == "" || cfg.SiteCode == "" {
		log.Fatalf("site root and site code are required (flags or SITE_ROOT/SITE_CODE)")
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := storage.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := storage.NewWithOptions(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	stats, err := run(ctx, cfg, database, &logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("run canceled")

			return
		}

		logger.Fatal().Err(err).Msg("run error")
	}

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, siteRoot, siteCode string, force, attachForce, recursive bool) {
	if siteRoot != "" {
		cfg.SiteRoot = siteRoot
	}

	if siteCode != "" {
		cfg.SiteCode = siteCode
	}

	if force {
		cfg.Force = true
	}

	if attachForce {
		cfg.AttachForce = true
	}

	if recursive {
		cfg.Recursive = true
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func run(ctx context.Context, cfg *config.Config, database *storage.DB, logger *zerolog.Logger) (domain.RunStats, error) {
	var stats domain.RunStats

	// Keyword snapshots are loaded once and shared read-only by all workers.
	exclusionKeywords, err := database.ListExclusionKeywords(ctx)
	if err != nil {
		return stats, err
	}

	categoryKeywords, err := database.ListCategoryKeywords(ctx)
	if err != nil {
		return stats, err
	}

	industryKeywords, err := database.ListIndustryKeywords(ctx)
	if err != nil {
		return stats, err
	}

	gate := intake.NewGate(database, logger)

	items, err := gate.Scan(ctx, intake.Options{
		SiteRoot:       cfg.SiteRoot,
		SiteCode:       cfg.SiteCode,
		Recursive:      cfg.Recursive,
		Force:          cfg.Force,
		AttachForce:    cfg.AttachForce,
		PrimaryName:    "content.md",
		AttachmentsDir: "attachments",
	})
	if err != nil {
		return stats, err
	}

	if len(items) == 0 {
		logger.Info().Str("site", cfg.SiteCode).Msg("no new folders to process")

		return stats, nil
	}

	factory := func(workerID int) *pipeline.Worker {
		workerLogger := logger.With().Int("worker", workerID).Logger()

		return pipeline.NewWorker(pipeline.WorkerDeps{
			Store:            database,
			Filter:           exclude.NewFilter(toExcludeKeywords(exclusionKeywords), database, &workerLogger),
			Assembler:        content.NewAssembler(content.NewRegistry(&workerLogger), &workerLogger),
			Engine:           extract.NewEngine(llm.New(cfg, &workerLogger), cfg.Pass2Policy, &workerLogger),
			Classifier:       classify.New(toCategoryKeywords(categoryKeywords), toIndustryKeywords(industryKeywords), cfg.ClassifyThreshold, &workerLogger),
			LLMClient:        llm.New(cfg, &workerLogger),
			RetrievalEnabled: cfg.RetrievalEnabled,
			SimilarityTopK:   cfg.SimilarityTopK,
			Logger:           workerLogger,
		})
	}

	orchestrator := pipeline.NewOrchestrator(cfg.WorkerCount, factory, logger)

	return orchestrator.Run(ctx, items), nil
}

func toExcludeKeywords(rows []storage.ExclusionKeyword) []exclude.Keyword {
	out := make([]exclude.Keyword, len(rows))
	for i, row := range rows {
		out[i] = exclude.Keyword{Keyword: row.Keyword, Description: row.Description}
	}

	return out
}

func toCategoryKeywords(rows []storage.CategoryKeyword) []classify.CategoryKeyword {
	out := make([]classify.CategoryKeyword, len(rows))
	for i, row := range rows {
		out[i] = classify.CategoryKeyword{
			Category: row.Category,
			Keyword:  row.Keyword,
			Synonyms: row.Synonyms,
			Weight:   row.Weight,
		}
	}

	return out
}

func toIndustryKeywords(rows []storage.IndustryKeyword) []classify.IndustryKeyword {
	out := make([]classify.IndustryKeyword, len(rows))
	for i, row := range rows {
		out[i] = classify.IndustryKeyword{Keyword: row.Keyword, Category: row.Category}
	}

	return out
}
