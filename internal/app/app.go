package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"FilingsScanner/internal/catalog"
	"FilingsScanner/internal/config"
	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/httpapi"
	"FilingsScanner/internal/infrastructure/extract"
	"FilingsScanner/internal/infrastructure/fnet"
	"FilingsScanner/internal/infrastructure/llm"
	"FilingsScanner/internal/infrastructure/scheduler"
	"FilingsScanner/internal/infrastructure/storage"
	"FilingsScanner/internal/infrastructure/telegram"
	"FilingsScanner/internal/logging"
	"FilingsScanner/internal/ports"
	"FilingsScanner/internal/usecase"
	"FilingsScanner/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLRepository
	pipeline *usecase.Pipeline
	notifier *telegram.Notifier
}

// New builds a runnable application instance. The caller owns Close.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tickers, err := buildCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	summarizer, err := llm.New(cfg.Summarizer)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	source := fnet.NewSource(&http.Client{Timeout: cfg.Source.Timeout}, fnet.SourceOptions{
		SearchURL:          cfg.Source.SearchURL,
		UserAgent:          cfg.Source.UserAgent,
		RecordsPath:        cfg.Source.RecordsPath,
		PageSize:           cfg.Source.PageSize,
		MaxPages:           cfg.Source.MaxPages,
		FundType:           cfg.Source.FundType,
		StatusFilter:       cfg.Source.StatusFilter,
		ExcludedCategories: cfg.Source.ExcludedCategories,
		Location:           cfg.Source.Location(),
	}, tickers, baseLogger.With("component", "fnet.source"))

	downloader := fnet.NewDownloader(&http.Client{Timeout: cfg.Download.Timeout}, fnet.DownloaderOptions{
		DownloadURL: cfg.Source.DownloadURL,
		Referer:     cfg.Source.Referer,
		UserAgent:   cfg.Source.UserAgent,
		StorageRoot: cfg.Storage.Root,
		Delay:       cfg.Download.Delay,
	}, baseLogger.With("component", "fnet.downloader"))

	extractor := extract.NewExtractor(filepath.Join(cfg.Storage.Root, "extract"), baseLogger.With("component", "extract"))

	var (
		notifier *telegram.Notifier
		channel  ports.NotificationChannel
	)
	tg := cfg.Notifications.Telegram
	if tg.BotToken != "" {
		notifier = telegram.NewNotifier(tg.APIURL, tg.BotToken, tg.ChatID, baseLogger.With("component", "telegram"))
	}
	if tg.Enabled() {
		channel = notifier
	} else {
		baseLogger.Warn("telegram is not configured, notifications disabled")
	}

	downloadURL := cfg.Source.DownloadURL
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Documents:  store,
		Posts:      store,
		Downloader: downloader,
		Files:      downloader,
		Extractor:  extractor,
		Summarizer: summarizer,
		Notifier:   channel,
		Logger:     baseLogger,
		Options: usecase.Options{
			Workers:         cfg.Pipeline.Workers,
			MaxSummaryInput: cfg.Pipeline.MaxSummaryInput,
			TickerSuffix:    cfg.Pipeline.TickerSuffix,
			Watchlist:       cfg.Notifications.Watchlist,
			LinkLabel:       cfg.Notifications.LinkLabel,
			Disclaimer:      cfg.Notifications.Disclaimer,
			DocumentLink: func(externalID string) string {
				return fnet.DocumentURL(downloadURL, externalID)
			},
		},
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		notifier: notifier,
	}, nil
}

func buildCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	tickers := catalog.Default()
	if cfg.Path != "" {
		entries, err := catalog.LoadFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			tickers.Register(e)
		}
	}
	for _, e := range cfg.Entries {
		tickers.Register(e)
	}
	return tickers, nil
}

// Today returns the current day in the portal timezone.
func (a *Application) Today() time.Time {
	return time.Now().In(a.cfg.Source.Location())
}

// Import performs a single pipeline execution for day.
func (a *Application) Import(ctx context.Context, day time.Time) (usecase.Report, error) {
	return a.pipeline.Import(ctx, day)
}

// RetryDownloads re-attempts documents parked in DOWNLOAD_ERROR.
func (a *Application) RetryDownloads(ctx context.Context) (usecase.StageReport, error) {
	return a.pipeline.RetryDownloads(ctx)
}

// Stats counts stored documents per status; every status is present.
func (a *Application) Stats(ctx context.Context) (map[domain.Status]int, error) {
	counts, err := a.store.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		out[status] = counts[status]
	}
	return out, nil
}

// Chats lists the chats that recently wrote to the bot.
func (a *Application) Chats(ctx context.Context) ([]telegram.Chat, error) {
	if a.notifier == nil {
		return nil, errors.New("telegram bot token is not configured")
	}
	return a.notifier.ChatIDs(ctx)
}

// Serve runs the cron schedule and the HTTP trigger until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), logger.NewCron(a.logger))
	jobs := usecase.NewScheduler(driver, a.pipeline)
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if next, err := driver.Next(time.Now()); err == nil {
		a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "next_run", next.Format(time.RFC3339))
	}

	server := httpapi.New(a.cfg.Server.Addr, a.pipeline, a.cfg.Source.Location(), a.logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if sErr := server.Shutdown(shutdownCtx); sErr != nil && err == nil {
		err = sErr
	}
	if sErr := jobs.Stop(shutdownCtx); sErr != nil {
		a.logger.Warn("scheduler stop", "error", sErr)
	}
	return err
}

// Close releases the database.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
