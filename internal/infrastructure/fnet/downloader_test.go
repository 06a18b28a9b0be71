package fnet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"FilingsScanner/internal/domain"
)

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"application/pdf":          "pdf",
		"application/pdf; charset": "pdf",
		"application/xml":          "xml",
		"text/xml; charset=utf-8":  "xml",
		"text/html":                "bin",
		"application/octet-stream": "bin",
	}
	for ct, want := range cases {
		got, err := ExtensionFor(ct)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", ct, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", ct, want, got)
		}
	}

	if _, err := ExtensionFor("  "); !errors.Is(err, domain.ErrUnidentifiedContent) {
		t.Fatalf("expected unidentified content, got %v", err)
	}
}

func TestDownloadWritesFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "940464" {
			t.Errorf("unexpected id %q", r.URL.Query().Get("id"))
		}
		if r.Header.Get("Referer") != "https://fnet.example/" {
			t.Errorf("missing referer")
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer server.Close()

	root := filepath.Join(t.TempDir(), "files")
	d := NewDownloader(server.Client(), DownloaderOptions{
		DownloadURL: server.URL + "/fnet/publico/downloadDocumento",
		Referer:     "https://fnet.example/",
		UserAgent:   "FilingsScanner/test",
		StorageRoot: root,
	}, nil)

	ext, err := d.Download(context.Background(), "doc-1", "940464")
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if ext != "pdf" {
		t.Fatalf("expected pdf, got %s", ext)
	}

	data, err := os.ReadFile(filepath.Join(root, "doc-1.pdf"))
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected file content %q", data)
	}
	if d.Path("doc-1", "pdf") != filepath.Join(root, "doc-1.pdf") {
		t.Fatalf("unexpected path %s", d.Path("doc-1", "pdf"))
	}
}

func TestDownloadMissingContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write(nil)
	}))
	defer server.Close()

	root := t.TempDir()
	d := NewDownloader(server.Client(), DownloaderOptions{DownloadURL: server.URL, StorageRoot: root}, nil)

	_, err := d.Download(context.Background(), "doc-2", "1")
	if !errors.Is(err, domain.ErrUnidentifiedContent) {
		t.Fatalf("expected unidentified content, got %v", err)
	}
	if !domain.IsPermanent(err) {
		t.Fatalf("missing content type should be permanent")
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("no file should be written, found %d", len(entries))
	}
}

func TestDownloadStatusClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusNotFound, true},
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
	}
	for _, tc := range cases {
		status := tc.status
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		d := NewDownloader(server.Client(), DownloaderOptions{DownloadURL: server.URL, StorageRoot: t.TempDir()}, nil)
		_, err := d.Download(context.Background(), "doc", "1")
		server.Close()

		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != status {
			t.Fatalf("status %d: expected HTTPStatusError, got %v", status, err)
		}
		if domain.IsPermanent(err) != tc.permanent {
			t.Fatalf("status %d: expected permanent=%v", status, tc.permanent)
		}
	}
}

func TestDocumentURL(t *testing.T) {
	t.Parallel()

	got := DocumentURL("https://fnet.bmfbovespa.com.br/fnet/publico/downloadDocumento", "940464")
	if got != "https://fnet.bmfbovespa.com.br/fnet/publico/downloadDocumento?id=940464" {
		t.Fatalf("unexpected url %s", got)
	}
}
