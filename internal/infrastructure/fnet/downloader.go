package fnet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

// FallbackExtension is used for content types the pipeline cannot read.
const FallbackExtension = "bin"

// HTTPStatusError reports a non-200 download response.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("download returned %s", e.Status)
}

// Permanent reports whether retrying the same request is pointless.
func (e *HTTPStatusError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// DownloaderOptions configures file acquisition.
type DownloaderOptions struct {
	DownloadURL string
	Referer     string
	UserAgent   string
	StorageRoot string
	Delay       time.Duration
}

// Downloader streams filings from the portal into the storage root.
type Downloader struct {
	client  *http.Client
	opts    DownloaderOptions
	limiter *rate.Limiter
	logger  *slog.Logger
}

var (
	_ ports.Downloader  = (*Downloader)(nil)
	_ ports.FileLocator = (*Downloader)(nil)
)

// NewDownloader builds a downloader paced to one request per Delay.
func NewDownloader(client *http.Client, opts DownloaderOptions, logger *slog.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Downloader{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Path returns {root}/{documentID}.{extension}.
func (d *Downloader) Path(documentID, extension string) string {
	return filepath.Join(d.opts.StorageRoot, documentID+"."+extension)
}

// Download fetches the filing and returns the extension derived from Content-Type.
func (d *Downloader) Download(ctx context.Context, documentID, externalID string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for download slot: %w", err)
	}

	downloadURL, err := buildDownloadURL(d.opts.DownloadURL, externalID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)
	req.Header.Set("Accept", "application/pdf, application/xml, text/xml, */*")
	if d.opts.Referer != "" {
		req.Header.Set("Referer", d.opts.Referer)
	}

	d.debug("download started", "url", downloadURL, "document_id", documentID)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	ext, err := ExtensionFor(resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	target := d.Path(documentID, ext)
	if err := writeAtomically(d.opts.StorageRoot, target, resp.Body); err != nil {
		return "", err
	}

	d.debug("download finished", "path", target, "document_id", documentID)
	return ext, nil
}

// ExtensionFor maps a Content-Type header to a file extension.
func ExtensionFor(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", domain.ErrUnidentifiedContent
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "application/pdf":
		return "pdf", nil
	case "application/xml", "text/xml":
		return "xml", nil
	default:
		return FallbackExtension, nil
	}
}

func writeAtomically(root, target string, body io.Reader) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}

	tmp, err := os.CreateTemp(root, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("move file into place: %w", err)
	}
	return nil
}

func buildDownloadURL(base, externalID string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid download url %s: %w", base, err)
	}
	query := parsed.Query()
	query.Set("id", externalID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// DocumentURL is the public link for a filing.
func DocumentURL(base, externalID string) string {
	u, err := buildDownloadURL(base, externalID)
	if err != nil {
		return base + "?id=" + url.QueryEscape(externalID)
	}
	return u
}

func (d *Downloader) debug(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
