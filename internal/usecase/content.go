package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"FilingsScanner/internal/domain"
)

// ProcessContent extracts and summarizes every FILE_DOWNLOADED document.
func (p *Pipeline) ProcessContent(ctx context.Context) (StageReport, error) {
	docs, err := p.documents.ListByStatus(ctx, domain.StatusFileDownloaded)
	if err != nil {
		return StageReport{}, fmt.Errorf("list %s: %w", domain.StatusFileDownloaded, err)
	}

	return p.forEach(ctx, docs, func(ctx context.Context, doc domain.MarketDocument) outcome {
		log := p.docLogger(doc)

		summary, err := p.summarizeDocument(ctx, doc)
		if err != nil {
			log.Error("content processing failed", "error", err)
			return failed
		}

		tldr, body := splitSummary(summary)
		patch := domain.DocumentPatch{TLDR: tldr, Summary: body, Content: summary}
		if err := p.documents.Transition(ctx, doc.ID, domain.StatusFileDownloaded, domain.StatusSummarized, patch); err != nil {
			log.Error("mark summarized failed", "error", err)
			return failed
		}

		log.Info("document summarized", "chars", len(summary))
		return succeeded
	}), nil
}

func (p *Pipeline) summarizeDocument(ctx context.Context, doc domain.MarketDocument) (string, error) {
	path := p.files.Path(doc.ID, doc.FileExtension)

	text, err := p.extractor.Extract(ctx, path, doc.FileExtension)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("extract %s: %w", path, domain.ErrEmptyContent)
	}

	summary, err := p.summarizer.Summarize(ctx, truncateRunes(text, p.opts.MaxSummaryInput))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("summarize: %w", domain.ErrEmptyContent)
	}
	return summary, nil
}

// truncateRunes keeps the first limit runes of s; limit <= 0 disables truncation.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

var (
	tldrMarker    = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?(?:\*\*|__)?\s*TL;?\s?DR\s*(?:\*\*|__)?\s*:?\s*(?:\*\*|__)?`)
	headingLine   = regexp.MustCompile(`^\s*#{1,6}\s`)
	boldTitleLine = regexp.MustCompile(`^\s*(?:\*\*|__)[^*_]+(?:\*\*|__)\s*:?\s*$`)
	ruleLine      = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
)

// splitSummary separates the TL;DR section from the rest of the post.
// Without a TL;DR marker the whole text is the summary.
func splitSummary(text string) (string, string) {
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if tldrMarker.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", strings.TrimSpace(text)
	}

	section := make([]string, 0)
	if rest := inlineRemainder(lines[start]); rest != "" {
		section = append(section, rest)
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		if headingLine.MatchString(line) || boldTitleLine.MatchString(line) || ruleLine.MatchString(line) {
			end = i
			break
		}
		if strings.TrimSpace(line) == "" {
			if len(section) > 0 {
				end = i
				break
			}
			continue
		}
		section = append(section, line)
	}

	remaining := append([]string{}, lines[:start]...)
	tail := lines[end:]
	if len(tail) > 0 && ruleLine.MatchString(tail[0]) {
		tail = tail[1:]
	}
	remaining = append(remaining, tail...)

	return strings.TrimSpace(strings.Join(section, "\n")), strings.TrimSpace(strings.Join(remaining, "\n"))
}

func inlineRemainder(line string) string {
	rest := strings.TrimSpace(line[len(tldrMarker.FindString(line)):])
	if strings.HasPrefix(rest, "(") {
		if idx := strings.Index(rest, ")"); idx >= 0 {
			rest = strings.TrimSpace(rest[idx+1:])
		}
	}
	rest = strings.TrimSpace(strings.TrimLeft(rest, ":*_"))
	return rest
}
