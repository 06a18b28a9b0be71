package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

var pageExpr = regexp.MustCompile(`page_(\d+)`)

// Extractor turns stored filings into plain text.
type Extractor struct {
	tempDir  string
	conf     *model.Configuration
	registry *Registry
	logger   *slog.Logger
}

var _ ports.ContentExtractor = (*Extractor)(nil)

// NewExtractor registers the pdf and xml formats and uses tempDir for pdfcpu scratch
// output; empty means os.TempDir.
func NewExtractor(tempDir string, logger *slog.Logger) *Extractor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	e := &Extractor{
		tempDir:  tempDir,
		conf:     model.NewDefaultConfiguration(),
		registry: NewRegistry(),
		logger:   logger,
	}
	e.registry.Register(FormatFunc{Ext: "pdf", Fn: func(_ context.Context, path string) (string, error) {
		return e.extractPDF(path)
	}})
	e.registry.Register(FormatFunc{Ext: "xml", Fn: func(_ context.Context, path string) (string, error) {
		return extractXML(path)
	}})
	return e
}

// Register adds or overrides the format for an extension.
func (e *Extractor) Register(format Format) {
	e.registry.Register(format)
}

// Extract dispatches on the file extension recorded at download time.
func (e *Extractor) Extract(ctx context.Context, path, extension string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format, err := e.registry.Resolve(extension)
	if err != nil {
		return "", err
	}
	if e.tempDir != "" {
		if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
	}

	text, err := format.Extract(ctx, path)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyContent, filepath.Base(path))
	}
	return text, nil
}

func (e *Extractor) extractPDF(path string) (string, error) {
	outDir, err := os.MkdirTemp(e.tempDir, "pdf-content-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(path, outDir, nil, e.conf); err != nil {
		return "", fmt.Errorf("extract pdf content: %w", err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("read scratch dir: %w", err)
	}

	pages := make(map[int]string, len(files))
	numbers := make([]int, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		match := pageExpr.FindStringSubmatch(file.Name())
		if match == nil {
			continue
		}
		pageNum, _ := strconv.Atoi(match[1])
		raw, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			e.debug("skip unreadable page", "file", file.Name(), "error", err)
			continue
		}
		if _, dup := pages[pageNum]; !dup {
			numbers = append(numbers, pageNum)
		}
		pages[pageNum] += DecodeContentStream(raw)
	}
	sort.Ints(numbers)

	var builder strings.Builder
	for _, n := range numbers {
		text := strings.TrimSpace(pages[n])
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	e.debug("pdf extracted", "path", path, "pages", len(numbers), "chars", builder.Len())
	return builder.String(), nil
}

// extractXML flattens leaf elements into "tag: value" lines, falling back to the raw file.
func extractXML(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read xml: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), nil
	}

	lines := make([]string, 0)
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 || s.Is("html, head, body") {
			return
		}
		value := strings.Join(strings.Fields(s.Text()), " ")
		if value == "" {
			return
		}
		lines = append(lines, goquery.NodeName(s)+": "+value)
	})

	if len(lines) == 0 {
		return string(raw), nil
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
