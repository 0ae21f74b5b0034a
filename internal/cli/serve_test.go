package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/vizlab/pkg/cache"
	"github.com/matzehuels/vizlab/pkg/pipeline"
)

const (
	streamsCSV = `genre,subgenre,streams,top
Pop,Dance,100,1
Pop,Dance,200,0
Pop,Synth,50,0
Rock,Indie,80,1
`
	squaresGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"A","properties":{"name":"Alpha"},"geometry":{"type":"Polygon","coordinates":[[[-10,-10],[10,-10],[10,10],[-10,10],[-10,-10]]]}},
{"type":"Feature","id":"B","properties":{"name":"Beta"},"geometry":{"type":"Polygon","coordinates":[[[20,20],[40,20],[40,40],[20,40],[20,20]]]}}
]}`
	pointsCSV = "lat,lon,weight\n0,0,10\n30,30,5\n95,0,1\n"
)

// fixtureOptions writes the sample inputs and returns options pointing at them.
func fixtureOptions(t *testing.T) pipeline.Options {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"streams.csv": streamsCSV,
		"world.json":  squaresGeoJSON,
		"points.csv":  pointsCSV,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return pipeline.Options{
		Records:  filepath.Join(dir, "streams.csv"),
		Topology: filepath.Join(dir, "world.json"),
		Points:   filepath.Join(dir, "points.csv"),
	}
}

func newTestServer(t *testing.T, opts pipeline.Options) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
	t.Cleanup(func() { runner.Close() })
	srv := httptest.NewServer(newServer(runner, opts, logger).routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, fixtureOptions(t))

	tests := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/healthz", http.StatusOK, contentTypeJSON, `"ok"`},
		{"/tree.svg", http.StatusOK, contentTypeSVG, "<svg"},
		{"/tree.svg?engine=graphviz", http.StatusOK, contentTypeSVG, `class="graph"`},
		{"/tree.svg?engine=ascii", http.StatusBadRequest, contentTypeJSON, "INVALID_INPUT"},
		{"/pack.svg", http.StatusOK, contentTypeSVG, "<circle"},
		{"/map.svg", http.StatusOK, contentTypeSVG, "<svg"},
		{"/map.svg?k=2&x=-500&y=-400", http.StatusOK, contentTypeSVG, "translate(-500,-400) scale(2)"},
		{"/map.svg?k=big", http.StatusBadRequest, contentTypeJSON, "INVALID_INPUT"},
		{"/", http.StatusOK, "text/html", `id="pack1"`},
		{"/missing", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path, nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("content type = %q, want %q", ct, tt.contentType)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body %.120q lacks %q", body, tt.contains)
			}
		})
	}
}

func TestServerAggregate(t *testing.T) {
	srv := newTestServer(t, fixtureOptions(t))

	_, body := get(t, srv.URL+"/aggregate", nil)
	var nested map[string]map[string]float64
	if err := json.Unmarshal([]byte(body), &nested); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	if got := nested["Pop"]["Dance"]; got != 150 {
		t.Errorf("Pop/Dance = %v, want 150", got)
	}

	_, body = get(t, srv.URL+"/aggregate?hierarchy=true", nil)
	var root struct {
		Name     string  `json:"name"`
		Value    float64 `json:"value"`
		Children []any   `json:"children"`
	}
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	if root.Value != 280 || len(root.Children) != 2 {
		t.Errorf("root = %+v", root)
	}
}

func TestServerRequestID(t *testing.T) {
	srv := newTestServer(t, fixtureOptions(t))

	resp, _ := get(t, srv.URL+"/healthz", nil)
	if _, err := uuid.Parse(resp.Header.Get(headerRequestID)); err != nil {
		t.Errorf("generated request id %q: %v", resp.Header.Get(headerRequestID), err)
	}

	id := uuid.NewString()
	resp, _ = get(t, srv.URL+"/healthz", http.Header{headerRequestID: {id}})
	if got := resp.Header.Get(headerRequestID); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	resp, _ = get(t, srv.URL+"/healthz", http.Header{headerRequestID: {"not-a-uuid"}})
	if got := resp.Header.Get(headerRequestID); got == "not-a-uuid" {
		t.Error("invalid request ids must be replaced")
	}
}

func TestServerErrors(t *testing.T) {
	opts := fixtureOptions(t)
	opts.Records = ""
	opts.Topology = filepath.Join(t.TempDir(), "missing.json")
	srv := newTestServer(t, opts)

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/tree.svg", http.StatusBadRequest, "INVALID_INPUT"},
		{"/aggregate", http.StatusBadRequest, "INVALID_INPUT"},
		{"/map.svg", http.StatusBadGateway, "FILE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path, nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			var eb errorBody
			if err := json.Unmarshal([]byte(body), &eb); err != nil {
				t.Fatalf("decode %q: %v", body, err)
			}
			if eb.Code != tt.code || eb.Error == "" {
				t.Errorf("error body = %+v, want code %s", eb, tt.code)
			}
			if eb.RequestID != resp.Header.Get(headerRequestID) {
				t.Errorf("request id %q not echoed in body", eb.RequestID)
			}
		})
	}
}
