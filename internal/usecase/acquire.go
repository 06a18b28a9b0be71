package usecase

import (
	"context"
	"fmt"

	"FilingsScanner/internal/domain"
)

// AcquireFiles downloads every PRE_SAVED filing. Permanent failures park the document in
// DOWNLOAD_ERROR; transient ones leave it PRE_SAVED for the next run.
func (p *Pipeline) AcquireFiles(ctx context.Context) (StageReport, error) {
	docs, err := p.documents.ListByStatus(ctx, domain.StatusPreSaved)
	if err != nil {
		return StageReport{}, fmt.Errorf("list %s: %w", domain.StatusPreSaved, err)
	}

	return p.forEach(ctx, docs, func(ctx context.Context, doc domain.MarketDocument) outcome {
		log := p.docLogger(doc)

		ext, err := p.downloader.Download(ctx, doc.ID, doc.ExternalID)
		if err != nil {
			if !domain.IsPermanent(err) {
				log.Warn("download failed, will retry", "error", err)
				return failed
			}
			log.Error("download failed permanently", "error", err)
			if tErr := p.documents.Transition(ctx, doc.ID, domain.StatusPreSaved, domain.StatusDownloadError, domain.DocumentPatch{}); tErr != nil {
				log.Error("mark download error failed", "error", tErr)
			}
			return failed
		}

		if err := p.documents.Transition(ctx, doc.ID, domain.StatusPreSaved, domain.StatusFileDownloaded, domain.DocumentPatch{FileExtension: ext}); err != nil {
			log.Error("mark downloaded failed", "error", err)
			return failed
		}

		log.Info("file downloaded", "extension", ext)
		return succeeded
	}), nil
}

// RetryDownloads re-attempts DOWNLOAD_ERROR documents; failures leave them untouched.
// Like Import it refuses to start while another run holds the pipeline.
func (p *Pipeline) RetryDownloads(ctx context.Context) (StageReport, error) {
	if !p.running.TryLock() {
		return StageReport{}, domain.ErrImportRunning
	}
	defer p.running.Unlock()

	docs, err := p.documents.ListByStatus(ctx, domain.StatusDownloadError)
	if err != nil {
		return StageReport{}, fmt.Errorf("list %s: %w", domain.StatusDownloadError, err)
	}

	return p.forEach(ctx, docs, func(ctx context.Context, doc domain.MarketDocument) outcome {
		log := p.docLogger(doc)

		ext, err := p.downloader.Download(ctx, doc.ID, doc.ExternalID)
		if err != nil {
			log.Warn("retry download failed", "error", err)
			return failed
		}
		if err := p.documents.Transition(ctx, doc.ID, domain.StatusDownloadError, domain.StatusFileDownloaded, domain.DocumentPatch{FileExtension: ext}); err != nil {
			log.Error("mark downloaded failed", "error", err)
			return failed
		}

		log.Info("file downloaded on retry", "extension", ext)
		return succeeded
	}), nil
}
