package ports

import (
	"context"
	"time"

	"FilingsScanner/internal/domain"
)

// FilingSource pulls filing metadata from the exchange portal.
type FilingSource interface {
	FetchBatch(ctx context.Context, day time.Time, offset, pageSize int) ([]domain.NormalizedFiling, error)
	FetchDay(ctx context.Context, day time.Time) ([]domain.NormalizedFiling, error)
}

// TickerResolver maps a fund trading name to its tracked ticker.
type TickerResolver interface {
	Resolve(tradingName string) (string, bool)
}

// DocumentRepository persists market documents and guards status changes.
type DocumentRepository interface {
	Create(ctx context.Context, doc domain.MarketDocument) error
	FindByID(ctx context.Context, id string) (domain.MarketDocument, error)
	FindByExternalID(ctx context.Context, externalID string) (domain.MarketDocument, error)
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.MarketDocument, error)
	Transition(ctx context.Context, id string, from, to domain.Status, patch domain.DocumentPatch) error
	// MarkNotified records a delivered notification without changing the status.
	MarkNotified(ctx context.Context, id string) error
}

// PostRepository stores public posts.
type PostRepository interface {
	CreatePost(ctx context.Context, post domain.Post) error
	FindPostByDocumentID(ctx context.Context, documentID string) (domain.Post, error)
}

// Downloader fetches the raw filing and stores it under the document id.
type Downloader interface {
	Download(ctx context.Context, documentID, externalID string) (string, error)
}

// FileLocator resolves where a downloaded filing lives.
type FileLocator interface {
	Path(documentID, extension string) string
}

// ContentExtractor converts a stored filing into plain text.
type ContentExtractor interface {
	Extract(ctx context.Context, path, extension string) (string, error)
}

// Summarizer condenses extracted text using a language model.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// NotificationChannel delivers formatted messages to subscribers.
type NotificationChannel interface {
	SendMessage(ctx context.Context, text string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
