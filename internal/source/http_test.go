package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/boshu2/macc/internal/catalog"
	"github.com/boshu2/macc/internal/paths"
)

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDownloadAndUnpackHTTPSource(t *testing.T) {
	archive := zipBytes(t, map[string]string{"README.md": "hello"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	pp := paths.FromRoot(t.TempDir())
	src := catalog.Source{Kind: catalog.KindHTTP, URL: srv.URL + "/archive.zip"}

	dir, err := DownloadAndUnpack(context.Background(), pp, src)
	if err != nil {
		t.Fatalf("DownloadAndUnpack: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("README.md = %q, %v", got, err)
	}
}

func TestDownloadSourceRawVerifiesChecksumAndRedownloadsOnMismatch(t *testing.T) {
	goodArchive := zipBytes(t, map[string]string{"a.txt": "v1"})
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write(goodArchive)
	}))
	defer srv.Close()

	pp := paths.FromRoot(t.TempDir())
	goodChecksum := sha256Checksum(goodArchive)
	src := catalog.Source{Kind: catalog.KindHTTP, URL: srv.URL + "/a.zip", Checksum: goodChecksum}

	path, err := DownloadSourceRaw(context.Background(), pp, src)
	if err != nil {
		t.Fatalf("DownloadSourceRaw: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Corrupt the cached archive, then re-request with the same checksum:
	// this should detect the mismatch and re-download.
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DownloadSourceRaw(context.Background(), pp, src); err != nil {
		t.Fatalf("DownloadSourceRaw after corruption: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls after corruption = %d, want 2 (re-downloaded)", calls)
	}
}

func TestDownloadSourceRawRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	pp := paths.FromRoot(t.TempDir())
	src := catalog.Source{Kind: catalog.KindHTTP, URL: srv.URL + "/missing.zip"}
	if _, err := DownloadSourceRaw(context.Background(), pp, src); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestDownloadSourceRawRejectsChecksumMismatch(t *testing.T) {
	archive := zipBytes(t, map[string]string{"a.txt": "content"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	pp := paths.FromRoot(t.TempDir())
	src := catalog.Source{Kind: catalog.KindHTTP, URL: srv.URL + "/a.zip", Checksum: fmt.Sprintf("sha256:%064d", 0)}
	if _, err := DownloadSourceRaw(context.Background(), pp, src); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}
