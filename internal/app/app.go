package app

import (
	"context"
	"log/slog"

	"sipwatcher/internal/config"
	"sipwatcher/internal/infrastructure/discord"
	"sipwatcher/internal/infrastructure/enrich"
	"sipwatcher/internal/infrastructure/fetch"
	"sipwatcher/internal/infrastructure/parser"
	"sipwatcher/internal/infrastructure/scheduler"
	"sipwatcher/internal/infrastructure/statestore"
	"sipwatcher/internal/infrastructure/storage"
	"sipwatcher/internal/logging"
	"sipwatcher/internal/ports"
	"sipwatcher/internal/scanner"
	"sipwatcher/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	archive  *storage.PostgresArchive
	logger   *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := fetch.New(nil, fetch.Options{
		MinInterval: cfg.Fetch.MinInterval(),
		Timeout:     cfg.Fetch.Timeout(),
		MaxRetries:  cfg.Fetch.MaxRetries,
		UserAgent:   cfg.Fetch.UserAgent,
	}, baseLogger.With("component", "fetch"))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewListScanner(fetcher, baseLogger.With("component", "scanner.list")))
	registry.Register(parser.NewFeedScanner(fetcher, baseLogger.With("component", "scanner.rss")))

	source := parser.NewStrategySource(registry, cfg.Site, cfg.Pipeline.ConcurrentPages, baseLogger.With("component", "source"))
	enricher := enrich.New(fetcher, cfg.Site.BaseURL, baseLogger.With("component", "enrich"))
	state := statestore.New(cfg.State.Path, baseLogger.With("component", "state"))

	notifier := discord.NewNotifier(cfg.Discord.WebhookURL, discord.Persona{
		Username:   cfg.Discord.Username,
		AvatarURL:  cfg.Discord.AvatarURL,
		AuthorName: cfg.Discord.AuthorName,
		AuthorURL:  cfg.Discord.AuthorURL,
		FooterText: cfg.Discord.FooterText,
	}, nil)

	var archive *storage.PostgresArchive
	var archivePort ports.DeliveryArchive
	if cfg.Database.DSN != "" {
		opened, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		archive = opened
		archivePort = opened
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Enricher: enricher,
		State:    state,
		Notifier: notifier,
		Archive:  archivePort,
		Logger:   baseLogger.With("component", "pipeline"),
	}, usecase.PipelinePolicy{
		Cutoff:            cfg.Pipeline.Cutoff,
		MaxInitialPosts:   cfg.Pipeline.MaxInitialPosts,
		SendDelay:         cfg.Pipeline.SendDelay(),
		EnrichConcurrency: cfg.Pipeline.ConcurrentPages,
	})

	return &Application{cfg: cfg, pipeline: pipeline, archive: archive, logger: baseLogger}, nil
}

// Run executes a single pipeline pass, or keeps running on the configured
// interval when one is set.
func (a *Application) Run(ctx context.Context) error {
	if a.archive != nil {
		defer a.archive.Close()
	}

	if interval := a.cfg.Scheduler.Interval(); interval > 0 {
		driver := scheduler.NewIntervalScheduler(interval)
		runner := usecase.NewRunner(driver, a.pipeline, a.logger.With("component", "runner"))
		if err := runner.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return runner.Stop(context.Background())
	}

	return a.pipeline.Run(ctx)
}
