package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"FilingsScanner/internal/domain"
)

// IngestReport counts what happened to fetched filings.
type IngestReport struct {
	Fetched    int `json:"fetched"`
	Created    int `json:"created"`
	Unresolved int `json:"unresolved"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Ingest fetches the day's filings and records the new ones.
func (p *Pipeline) Ingest(ctx context.Context, day time.Time) (IngestReport, error) {
	if p.source == nil {
		return IngestReport{}, fmt.Errorf("filing source is not configured")
	}

	filings, err := p.source.FetchDay(ctx, day)
	if err != nil {
		return IngestReport{}, err
	}

	report := p.SaveFilings(ctx, filings)
	report.Fetched = len(filings)
	return report, nil
}

// SaveFilings creates one document per unseen external id. Filings without a ticker are
// stored as TICKER_NOT_FOUND so they are never fetched again.
func (p *Pipeline) SaveFilings(ctx context.Context, filings []domain.NormalizedFiling) IngestReport {
	var report IngestReport

	for _, filing := range filings {
		log := p.logger.With("external_id", filing.ExternalID, "trading_name", filing.TradingName)

		_, err := p.documents.FindByExternalID(ctx, filing.ExternalID)
		switch {
		case err == nil:
			report.Duplicates++
			continue
		case !errors.Is(err, domain.ErrNotFound):
			log.Error("lookup failed", "error", err)
			report.Failed++
			continue
		}

		doc := domain.MarketDocument{
			ID:              ulid.Make().String(),
			ExternalID:      filing.ExternalID,
			Status:          domain.InitialStatus(filing.Ticker),
			Ticker:          filing.Ticker,
			Category:        filing.Category,
			FundDescription: filing.FundDescription,
			TradingName:     filing.TradingName,
			CreatedAt:       filing.CreatedAt,
		}

		if err := p.documents.Create(ctx, doc); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				report.Duplicates++
				continue
			}
			log.Error("create document failed", "error", err)
			report.Failed++
			continue
		}

		if doc.Status == domain.StatusTickerNotFound {
			report.Unresolved++
			log.Debug("ticker not found")
		}
		report.Created++
		log.Info("document saved", "document_id", doc.ID, "status", doc.Status)
	}

	return report
}
