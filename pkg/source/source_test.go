package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/errors"
)

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"http://x/a.csv":    true,
		"https://x/a.json":  true,
		"data/streams.csv":  false,
		"/abs/streams.csv":  false,
		"postgres://u@h/db": false,
	}
	for loc, want := range tests {
		if got := IsURL(loc); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", loc, got, want)
		}
	}
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.csv")
	if err := os.WriteFile(path, []byte("genre,subgenre,streams\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := Read(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "genre,subgenre,streams\n" {
		t.Errorf("data = %q", data)
	}

	rc, err := Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != string(data) {
		t.Errorf("Open read %q", b)
	}
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		loc  string
		code errors.Code
	}{
		{"", errors.ErrCodeInvalidInput},
		{filepath.Join(dir, "missing.csv"), errors.ErrCodeFileNotFound},
		{dir, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		_, err := Read(context.Background(), tt.loc)
		if !errors.Is(err, tt.code) {
			t.Errorf("Read(%q) err = %v, want %s", tt.loc, err, tt.code)
		}
	}
}

func TestLoader_CachesRemote(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"type":"Topology"}`))
	}))
	defer srv.Close()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := &Loader{Cache: c, Client: srv.Client()}
	ctx := context.Background()

	for range 3 {
		data, err := l.Load(ctx, srv.URL+"/world.json")
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"type":"Topology"}` {
			t.Fatalf("data = %q", data)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server hit %d times, want 1", calls.Load())
	}

	l.Refresh = true
	if _, err := l.Load(ctx, srv.URL+"/world.json"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("Refresh did not refetch (calls=%d)", calls.Load())
	}
}
