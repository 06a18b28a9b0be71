package domain

import "fmt"

// Status is the pipeline position of a MarketDocument.
type Status string

const (
	StatusPreSaved       Status = "PRE_SAVED"
	StatusFileDownloaded Status = "FILE_DOWNLOADED"
	StatusSummarized     Status = "SUMMARIZED"
	StatusPublished      Status = "PUBLISHED"
	StatusDownloadError  Status = "DOWNLOAD_ERROR"
	StatusTickerNotFound Status = "TICKER_NOT_FOUND"
)

// AllStatuses lists the closed enumeration in pipeline order.
var AllStatuses = []Status{
	StatusPreSaved,
	StatusFileDownloaded,
	StatusSummarized,
	StatusPublished,
	StatusDownloadError,
	StatusTickerNotFound,
}

// transitions is the directed graph of allowed status changes.
// DOWNLOAD_ERROR -> FILE_DOWNLOADED is only taken by the manual retry.
var transitions = map[Status][]Status{
	StatusPreSaved:       {StatusFileDownloaded, StatusDownloadError},
	StatusFileDownloaded: {StatusSummarized},
	StatusSummarized:     {StatusPublished},
	StatusDownloadError:  {StatusFileDownloaded},
}

// Valid reports whether s belongs to the enumeration.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Initial reports whether a document may be created with this status.
func (s Status) Initial() bool {
	return s == StatusPreSaved || s == StatusTickerNotFound
}

// HasFile reports whether documents in this status carry a downloaded file.
func (s Status) HasFile() bool {
	switch s {
	case StatusFileDownloaded, StatusSummarized, StatusPublished:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks the edge and the data the target status requires.
func ValidateTransition(from, to Status, patch DocumentPatch) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	if to == StatusFileDownloaded && patch.FileExtension == "" {
		return fmt.Errorf("%w: %s requires a file extension", ErrIllegalTransition, to)
	}
	if to == StatusSummarized && patch.Content == "" {
		return fmt.Errorf("%w: %s requires content", ErrIllegalTransition, to)
	}
	return nil
}

// InitialStatus picks the creation status for a filing.
func InitialStatus(ticker string) Status {
	if ticker == "" {
		return StatusTickerNotFound
	}
	return StatusPreSaved
}
