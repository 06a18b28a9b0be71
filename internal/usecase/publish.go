package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"FilingsScanner/internal/domain"
)

// Publish turns every SUMMARIZED document into a post and notifies watchlisted tickers.
func (p *Pipeline) Publish(ctx context.Context) (StageReport, error) {
	docs, err := p.documents.ListByStatus(ctx, domain.StatusSummarized)
	if err != nil {
		return StageReport{}, fmt.Errorf("list %s: %w", domain.StatusSummarized, err)
	}

	return p.forEach(ctx, docs, func(ctx context.Context, doc domain.MarketDocument) outcome {
		log := p.docLogger(doc)

		if strings.TrimSpace(doc.Content) == "" {
			log.Error("summarized document has no content")
			return skipped
		}

		postErr := p.createPost(ctx, doc)
		if postErr != nil {
			log.Error("create post failed", "error", postErr)
		}

		// notified_at gates delivery, independent of the post outcome
		if p.shouldNotify(doc) && doc.NotifiedAt.IsZero() {
			p.notify(ctx, log, doc)
		}

		if postErr != nil {
			return failed
		}

		if err := p.documents.Transition(ctx, doc.ID, domain.StatusSummarized, domain.StatusPublished, domain.DocumentPatch{}); err != nil {
			log.Error("mark published failed", "error", err)
			return failed
		}

		log.Info("document published")
		return succeeded
	}), nil
}

// createPost stores the post for doc; a post that already exists is not an error.
func (p *Pipeline) createPost(ctx context.Context, doc domain.MarketDocument) error {
	if p.posts == nil {
		return nil
	}

	post := domain.Post{
		ID:                 uuid.NewString(),
		DocumentID:         doc.ID,
		DocumentExternalID: doc.ExternalID,
		FileExtension:      doc.FileExtension,
		Ticker:             domain.NormalizeTicker(doc.Ticker, p.opts.TickerSuffix),
		Content:            doc.Content,
		PublishedAt:        doc.CreatedAt,
		Type:               domain.PostTypeReport,
	}
	if doc.TLDR != "" {
		post.Metrics = map[string]string{"tldr": doc.TLDR}
	}

	err := p.posts.CreatePost(ctx, post)
	if errors.Is(err, domain.ErrDuplicate) {
		return nil
	}
	return err
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, doc domain.MarketDocument) {
	if err := p.notifier.SendMessage(ctx, p.composeMessage(doc)); err != nil {
		log.Error("notification failed", "error", err)
		return
	}
	if err := p.documents.MarkNotified(ctx, doc.ID); err != nil {
		log.Error("record notification failed", "error", err)
		return
	}
	log.Info("notification sent")
}

func (p *Pipeline) shouldNotify(doc domain.MarketDocument) bool {
	return p.notifier != nil && domain.Watchlisted(doc.Ticker, p.opts.Watchlist)
}

// composeMessage builds "(TICKER) description", the post body, the filing link for PDFs
// and the disclaimer, separated by blank lines.
func (p *Pipeline) composeMessage(doc domain.MarketDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s) %s\n\n", doc.Ticker, doc.FundDescription)
	b.WriteString(doc.Content)

	if doc.FileExtension == "pdf" && p.opts.DocumentLink != nil {
		label := p.opts.LinkLabel
		if label != "" {
			label += " "
		}
		b.WriteString("\n\n" + label + p.opts.DocumentLink(doc.ExternalID))
	}

	if p.opts.Disclaimer != "" {
		b.WriteString("\n\n---\n\n" + p.opts.Disclaimer)
	}
	return b.String()
}
