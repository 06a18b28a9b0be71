package domain

import "time"

// Category classifies a filing by the upstream document-type label.
type Category string

const (
	CategoryDividends Category = "DIVIDENDS"
	CategoryReport    Category = "REPORT"
)

// PostType enumerates public post kinds.
type PostType string

const (
	PostTypeDividend PostType = "dividend"
	PostTypeReport   PostType = "report"
	PostTypeNews     PostType = "news"
)

// NormalizedFiling is a portal record after validation and ticker resolution.
type NormalizedFiling struct {
	ExternalID      string
	Ticker          string
	Category        Category
	FundDescription string
	TradingName     string
	CreatedAt       time.Time
}

// MarketDocument is the persisted record of a single filing.
type MarketDocument struct {
	ID              string
	ExternalID      string
	Status          Status
	Ticker          string
	Category        Category
	FundDescription string
	TradingName     string
	FileExtension   string
	TLDR            string
	Summary         string
	Content         string
	// NotifiedAt is zero until the watchlist message was delivered.
	NotifiedAt time.Time
	// CreatedAt is the filing delivery time reported by the portal.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentPatch carries the fields a stage writes alongside a status change.
type DocumentPatch struct {
	FileExtension string
	TLDR          string
	Summary       string
	Content       string
}

// Post is the public artifact derived from a published document.
type Post struct {
	ID                 string
	DocumentID         string
	DocumentExternalID string
	FileExtension      string
	Ticker             string
	Content            string
	PublishedAt        time.Time
	Type               PostType
	Metrics            map[string]string
}
