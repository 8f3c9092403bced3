package dictionary

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureCorpus_LocalCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "JMdict_e.xml")
	if err := os.WriteFile(path, []byte("<JMdict/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// An existing file is never downloaded again, so an empty url is fine.
	if err := EnsureCorpus(context.Background(), path, "", nil); err != nil {
		t.Fatalf("EnsureCorpus failed with local file: %v", err)
	}
}

func TestEnsureCorpus_DownloadsGzip(t *testing.T) {
	want := []byte("<JMdict><entry><ent_seq>1</ent_seq></entry></JMdict>")
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write(want)
	w.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(gz.Bytes())
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "corpus", "JMdict_e.xml")
	if err := EnsureCorpus(context.Background(), path, srv.URL+"/JMdict_e.gz", nil); err != nil {
		t.Fatalf("EnsureCorpus: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEnsureCorpus_PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<kanjidic2/>"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "kanjidic2.xml")
	if err := EnsureCorpus(context.Background(), path, srv.URL, nil); err != nil {
		t.Fatalf("EnsureCorpus: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "<kanjidic2/>" {
		t.Fatalf("got %q", got)
	}
}

func TestEnsureCorpus_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "JMdict_e.xml")
	if err := EnsureCorpus(context.Background(), path, srv.URL, nil); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file after failed download, stat err = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no partial files, found %d", len(entries))
	}
}

func TestEnsureCorpus_NoURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.xml")
	if err := EnsureCorpus(context.Background(), path, "", nil); err == nil {
		t.Fatal("expected error when corpus is missing and no url is set")
	}
}

func TestEnsureCorpus_ErrorsCarryContext(t *testing.T) {
	dir := t.TempDir()
	err := EnsureCorpus(context.Background(), filepath.Join(dir, "a.xml"), "://bad url", nil)
	if err == nil || !strings.Contains(err.Error(), "failed to create request") {
		t.Fatalf("expected request error with context, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<JMdict/>"))
	}))
	defer srv.Close()
	// A regular file where a parent directory should be: stat fails with
	// ENOTDIR rather than not-exist.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err = EnsureCorpus(context.Background(), filepath.Join(blocker, "sub", "JMdict_e.xml"), srv.URL, nil)
	if err == nil || !strings.Contains(err.Error(), "stat corpus") {
		t.Fatalf("expected stat error with context, got %v", err)
	}
}
