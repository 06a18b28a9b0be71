package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FilingsScanner/internal/domain"
)

type memRepo struct {
	mu    sync.Mutex
	docs  map[string]domain.MarketDocument
	posts map[string]domain.Post
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[string]domain.MarketDocument{}, posts: map[string]domain.Post{}}
}

func (r *memRepo) Create(_ context.Context, doc domain.MarketDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.ExternalID == doc.ExternalID {
			return domain.ErrDuplicate
		}
	}
	r.docs[doc.ID] = doc
	return nil
}

// seed stores a document in any status, bypassing the creation rule.
func (r *memRepo) seed(doc domain.MarketDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
}

func (r *memRepo) FindByID(_ context.Context, id string) (domain.MarketDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.MarketDocument{}, domain.ErrNotFound
	}
	return doc, nil
}

func (r *memRepo) FindByExternalID(_ context.Context, externalID string) (domain.MarketDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.ExternalID == externalID {
			return doc, nil
		}
	}
	return domain.MarketDocument{}, domain.ErrNotFound
}

func (r *memRepo) ListByStatus(_ context.Context, status domain.Status) ([]domain.MarketDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.MarketDocument, 0)
	for _, doc := range r.docs {
		if doc.Status == status {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRepo) Transition(_ context.Context, id string, from, to domain.Status, patch domain.DocumentPatch) error {
	if err := domain.ValidateTransition(from, to, patch); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Status != from {
		return domain.ErrStaleStatus
	}
	doc.Status = to
	if patch.FileExtension != "" {
		doc.FileExtension = patch.FileExtension
	}
	if patch.TLDR != "" {
		doc.TLDR = patch.TLDR
	}
	if patch.Summary != "" {
		doc.Summary = patch.Summary
	}
	if patch.Content != "" {
		doc.Content = patch.Content
	}
	r.docs[id] = doc
	return nil
}

func (r *memRepo) MarkNotified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.NotifiedAt = time.Now()
	r.docs[id] = doc
	return nil
}

func (r *memRepo) CreatePost(_ context.Context, post domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.DocumentID]; ok {
		return domain.ErrDuplicate
	}
	r.posts[post.DocumentID] = post
	return nil
}

func (r *memRepo) FindPostByDocumentID(_ context.Context, documentID string) (domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[documentID]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return post, nil
}

func (r *memRepo) status(id string) domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id].Status
}

type fakeSource struct {
	filings []domain.NormalizedFiling
	err     error
	// started and release, when set, hold FetchDay until the test lets it go.
	started chan struct{}
	release chan struct{}
}

func (s *fakeSource) FetchBatch(ctx context.Context, day time.Time, offset, pageSize int) ([]domain.NormalizedFiling, error) {
	return s.FetchDay(ctx, day)
}

func (s *fakeSource) FetchDay(context.Context, time.Time) ([]domain.NormalizedFiling, error) {
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	return s.filings, s.err
}

// failingPosts wraps memRepo with a post store that always errors.
type failingPosts struct {
	*memRepo
	err error
}

func (f failingPosts) CreatePost(context.Context, domain.Post) error {
	return f.err
}

type downloadResult struct {
	ext string
	err error
}

type fakeDownloader struct {
	mu      sync.Mutex
	results map[string]downloadResult
	calls   []string
}

func (d *fakeDownloader) Download(_ context.Context, documentID, externalID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, externalID)
	if res, ok := d.results[externalID]; ok {
		return res.ext, res.err
	}
	return "pdf", nil
}

func (d *fakeDownloader) Path(documentID, extension string) string {
	return "/files/" + documentID + "." + extension
}

type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (e *fakeExtractor) Extract(_ context.Context, path, _ string) (string, error) {
	if err, ok := e.errs[path]; ok {
		return "", err
	}
	if text, ok := e.texts[path]; ok {
		return text, nil
	}
	return "Relatório gerencial do fundo.", nil
}

type fakeSummarizer struct {
	mu     sync.Mutex
	inputs []string
	fn     func(text string) (string, error)
}

func (s *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, text)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(text)
	}
	return "**TL;DR**\n- Rendimento de R$ 0,10 por cota\n\nO fundo manteve a distribuição.", nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *fakeNotifier) SendMessage(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

type permanentErr struct{ permanent bool }

func (e permanentErr) Error() string   { return fmt.Sprintf("permanent=%v", e.permanent) }
func (e permanentErr) Permanent() bool { return e.permanent }
