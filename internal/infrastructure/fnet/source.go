package fnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

const portalDateLayout = "02/01/2006"

// SourceOptions configures the portal search endpoint.
type SourceOptions struct {
	SearchURL          string
	UserAgent          string
	RecordsPath        string
	PageSize           int
	MaxPages           int
	FundType           string
	StatusFilter       string
	ExcludedCategories []string
	Location           *time.Location
}

// Source fetches filing metadata pages from the exchange portal.
type Source struct {
	client   *http.Client
	opts     SourceOptions
	resolver ports.TickerResolver
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
	draw     atomic.Int64
}

var _ ports.FilingSource = (*Source)(nil)

// NewSource wires an HTTP client; pageSize defaults to 100.
func NewSource(client *http.Client, opts SourceOptions, resolver ports.TickerResolver, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.RecordsPath == "" {
		opts.RecordsPath = "data"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Source{
		client:   client,
		opts:     opts,
		resolver: resolver,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// rawFiling is a portal record; only the fields the pipeline reads are mapped.
type rawFiling struct {
	ID               json.Number `json:"id" validate:"required"`
	FundDescription  string      `json:"descricaoFundo"`
	DocumentCategory string      `json:"categoriaDocumento"`
	DocumentType     string      `json:"tipoDocumento"`
	DeliveryDate     string      `json:"dataEntrega"`
	TradingName      string      `json:"nomePregao" validate:"required"`
}

// FetchDay drains pages for the reference day until a short page or MaxPages.
func (s *Source) FetchDay(ctx context.Context, day time.Time) ([]domain.NormalizedFiling, error) {
	results := make([]domain.NormalizedFiling, 0)
	seen := map[string]struct{}{}

	offset := 0
	for page := 0; page < s.opts.MaxPages; page++ {
		records, rawCount, err := s.fetchPage(ctx, day, offset, s.opts.PageSize)
		if err != nil {
			return nil, err
		}

		for _, filing := range records {
			if _, ok := seen[filing.ExternalID]; ok {
				continue
			}
			seen[filing.ExternalID] = struct{}{}
			results = append(results, filing)
		}

		if rawCount < s.opts.PageSize {
			break
		}
		offset += s.opts.PageSize
	}

	s.debug("fetch day done", "day", day.Format(portalDateLayout), "filings", len(results))
	return results, nil
}

// FetchBatch returns the normalized filings of a single page.
func (s *Source) FetchBatch(ctx context.Context, day time.Time, offset, pageSize int) ([]domain.NormalizedFiling, error) {
	records, _, err := s.fetchPage(ctx, day, offset, pageSize)
	return records, err
}

func (s *Source) fetchPage(ctx context.Context, day time.Time, offset, pageSize int) ([]domain.NormalizedFiling, int, error) {
	draw := int(s.draw.Add(1))
	pageURL, err := buildPageURL(s.opts, day, offset, pageSize, draw)
	if err != nil {
		return nil, 0, err
	}

	body, err := s.fetchBody(ctx, pageURL)
	if err != nil {
		return nil, 0, err
	}

	records, err := decodeEnvelope(body, s.opts.RecordsPath)
	if err != nil {
		return nil, 0, err
	}

	filings := make([]domain.NormalizedFiling, 0, len(records))
	for i, raw := range records {
		var rec rawFiling
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.debug("drop undecodable record", "index", i, "error", err)
			continue
		}
		filing, ok := s.normalize(rec)
		if !ok {
			continue
		}
		filings = append(filings, filing)
	}

	s.debug("page fetched", "offset", offset, "records", len(records), "kept", len(filings))
	return filings, len(records), nil
}

func (s *Source) fetchBody(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request metadata: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: portal returned %s", domain.ErrUpstreamUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata: %v", domain.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// decodeEnvelope walks the dot-separated key path down to the records array.
func decodeEnvelope(body []byte, path string) ([]json.RawMessage, error) {
	var node json.RawMessage = body
	for _, key := range strings.Split(path, ".") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(node, &obj); err != nil {
			return nil, fmt.Errorf("%w: expected object at %q", domain.ErrUpstreamShape, key)
		}
		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing key %q", domain.ErrUpstreamShape, key)
		}
		node = next
	}

	var records []json.RawMessage
	if err := json.Unmarshal(node, &records); err != nil || records == nil {
		return nil, fmt.Errorf("%w: %q is not an array", domain.ErrUpstreamShape, path)
	}
	return records, nil
}

func (s *Source) normalize(rec rawFiling) (domain.NormalizedFiling, bool) {
	rec.TradingName = strings.TrimSpace(rec.TradingName)
	if err := s.validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			s.debug("drop invalid record", "id", rec.ID.String(), "fields", len(verrs))
		}
		return domain.NormalizedFiling{}, false
	}
	if s.excluded(rec.DocumentCategory) {
		s.debug("drop excluded category", "id", rec.ID.String(), "category", rec.DocumentCategory)
		return domain.NormalizedFiling{}, false
	}

	var ticker string
	if s.resolver != nil {
		ticker, _ = s.resolver.Resolve(rec.TradingName)
	}

	return domain.NormalizedFiling{
		ExternalID:      rec.ID.String(),
		Ticker:          ticker,
		Category:        categorize(rec.DocumentType),
		FundDescription: strings.TrimSpace(rec.FundDescription),
		TradingName:     rec.TradingName,
		CreatedAt:       parseDeliveryDate(rec.DeliveryDate, s.opts.Location, s.now),
	}, true
}

func (s *Source) excluded(category string) bool {
	category = strings.TrimSpace(category)
	for _, ex := range s.opts.ExcludedCategories {
		if strings.EqualFold(category, strings.TrimSpace(ex)) {
			return true
		}
	}
	return false
}

var dividendMarkers = []string{"rendimento", "amortiza", "dividend", "provento"}

func categorize(documentType string) domain.Category {
	label := strings.ToLower(documentType)
	for _, marker := range dividendMarkers {
		if strings.Contains(label, marker) {
			return domain.CategoryDividends
		}
	}
	return domain.CategoryReport
}

// parseDeliveryDate accepts "DD/MM/YYYY HH:mm" or "DD/MM/YYYY"; anything else yields now.
func parseDeliveryDate(value string, loc *time.Location, now func() time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{portalDateLayout + " 15:04", portalDateLayout} {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed
		}
	}
	return now()
}

func buildPageURL(opts SourceOptions, day time.Time, offset, pageSize, draw int) (string, error) {
	parsed, err := url.Parse(opts.SearchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search url %s: %w", opts.SearchURL, err)
	}

	date := day.In(opts.Location).Format(portalDateLayout)

	query := parsed.Query()
	query.Set("d", strconv.Itoa(draw))
	query.Set("s", strconv.Itoa(offset))
	query.Set("l", strconv.Itoa(pageSize))
	query.Set("o[0][dataEntrega]", "desc")
	query.Set("tipoFundo", opts.FundType)
	query.Set("idCategoriaDocumento", "0")
	query.Set("idTipoDocumento", "0")
	query.Set("idEspecieDocumento", "0")
	if opts.StatusFilter != "" {
		query.Set("situacao", opts.StatusFilter)
	}
	query.Set("dataInicial", date)
	query.Set("dataFinal", date)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (s *Source) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
