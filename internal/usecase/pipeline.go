package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

// PipelineDeps wires all driven adapters into the filing pipeline.
type PipelineDeps struct {
	Source     ports.FilingSource
	Documents  ports.DocumentRepository
	Posts      ports.PostRepository
	Downloader ports.Downloader
	Files      ports.FileLocator
	Extractor  ports.ContentExtractor
	Summarizer ports.Summarizer
	Notifier   ports.NotificationChannel
	Logger     *slog.Logger
	Options    Options
}

// Options tunes stage behaviour.
type Options struct {
	// Workers bounds per-stage concurrency; 1 keeps documents sequential.
	Workers         int
	MaxSummaryInput int
	TickerSuffix    string
	Watchlist       []string
	LinkLabel       string
	Disclaimer      string
	// DocumentLink builds the public URL of a filing; nil omits the link.
	DocumentLink func(externalID string) string
}

// Pipeline implements the status-driven filing workflow.
type Pipeline struct {
	source     ports.FilingSource
	documents  ports.DocumentRepository
	posts      ports.PostRepository
	downloader ports.Downloader
	files      ports.FileLocator
	extractor  ports.ContentExtractor
	summarizer ports.Summarizer
	notifier   ports.NotificationChannel
	logger     *slog.Logger
	opts       Options
	now        func() time.Time

	// running serialises Import and RetryDownloads between the cron job and the HTTP trigger.
	running sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := deps.Options
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		source:     deps.Source,
		documents:  deps.Documents,
		posts:      deps.Posts,
		downloader: deps.Downloader,
		files:      deps.Files,
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		logger:     logger.With("component", "pipeline"),
		opts:       opts,
		now:        time.Now,
	}
}

// StageReport counts per-document outcomes of one stage.
type StageReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Report summarizes a full Import run.
type Report struct {
	Ingest  IngestReport `json:"ingest"`
	Acquire StageReport  `json:"acquire"`
	Content StageReport  `json:"content"`
	Publish StageReport  `json:"publish"`
}

// Import runs every stage in order, each draining its full working set.
// Only an ingest failure aborts the run. A call made while another run is in
// progress returns domain.ErrImportRunning without doing any work.
func (p *Pipeline) Import(ctx context.Context, day time.Time) (Report, error) {
	if !p.running.TryLock() {
		return Report{}, domain.ErrImportRunning
	}
	defer p.running.Unlock()

	var (
		report Report
		err    error
	)
	started := p.now()

	report.Ingest, err = p.Ingest(ctx, day)
	if err != nil {
		return report, fmt.Errorf("ingest: %w", err)
	}

	if report.Acquire, err = p.AcquireFiles(ctx); err != nil {
		return report, fmt.Errorf("acquire files: %w", err)
	}
	if report.Content, err = p.ProcessContent(ctx); err != nil {
		return report, fmt.Errorf("process content: %w", err)
	}
	if report.Publish, err = p.Publish(ctx); err != nil {
		return report, fmt.Errorf("publish: %w", err)
	}

	p.logger.Info("import finished",
		"day", day.Format("2006-01-02"),
		"fetched", report.Ingest.Fetched,
		"created", report.Ingest.Created,
		"downloaded", report.Acquire.Succeeded,
		"summarized", report.Content.Succeeded,
		"published", report.Publish.Succeeded,
		"elapsed", p.now().Sub(started).String(),
	)
	return report, nil
}

type outcome int

const (
	succeeded outcome = iota
	failed
	skipped
)

// forEach runs fn over docs with at most Workers goroutines. Per-document failures are
// counted, never propagated, so one bad filing cannot cancel its siblings.
func (p *Pipeline) forEach(ctx context.Context, docs []domain.MarketDocument, fn func(context.Context, domain.MarketDocument) outcome) StageReport {
	var (
		mu     sync.Mutex
		report = StageReport{Processed: len(docs)}
		group  errgroup.Group
	)
	group.SetLimit(p.opts.Workers)

	for _, doc := range docs {
		doc := doc
		group.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}
			result := fn(ctx, doc)
			mu.Lock()
			switch result {
			case succeeded:
				report.Succeeded++
			case failed:
				report.Failed++
			case skipped:
				report.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return report
}

func (p *Pipeline) docLogger(doc domain.MarketDocument) *slog.Logger {
	return p.logger.With("document_id", doc.ID, "external_id", doc.ExternalID, "ticker", doc.Ticker)
}
