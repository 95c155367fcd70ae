package regression_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docpadron/docpadron/internal/api"
	"github.com/docpadron/docpadron/internal/classify"
	"github.com/docpadron/docpadron/internal/db"
	"github.com/docpadron/docpadron/internal/drive"
	"github.com/docpadron/docpadron/internal/scan"
	"github.com/docpadron/docpadron/internal/scheduler"
	"github.com/docpadron/docpadron/internal/store"
	"github.com/docpadron/docpadron/internal/worker"
)

// testEnv is a full in-process instance: real router, real store on a
// temp database, and a local directory standing in for the drive.
type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  *store.Store
	worker *worker.Worker
	root   string
}

// newTestEnv builds an instance over a seeded employee tree and starts
// an httptest server. Everything is torn down with the test.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	seedEmployeeTree(t, root)

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	st := store.New(database)

	taxonomy, err := classify.DefaultTaxonomy()
	if err != nil {
		t.Fatalf("load taxonomy: %v", err)
	}

	provider := drive.NewLocalProvider(root)
	progress := scan.NewProgress()
	scanner := scan.New(provider, st, progress, 0)

	wk := worker.New(st, classify.New(taxonomy), scanner, provider, drive.PlainTextExtractor{}, worker.Options{
		PollInterval: 10 * time.Millisecond,
		ScanInterval: time.Hour,
		BatchSize:    10,
		MaxWorkers:   2,
	})
	wk.Configure("local", ".")

	sched := scheduler.New()
	srv := httptest.NewServer(api.NewRouter(st, wk, scanner, sched, "test"))
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:    srv,
		client: srv.Client(),
		store:  st,
		worker: wk,
		root:   root,
	}
}

// seedEmployeeTree writes one employee with a to-rename scan, a text
// document and an already standardized file.
func seedEmployeeTree(t *testing.T, root string) {
	t.Helper()
	docs := filepath.Join(root, "1234 - João Da Silva Santos", "01 - Documentos Pessoais")
	if err := os.MkdirAll(docs, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"RG_Joao.pdf":          "%PDF-1.4 binary",
		"documento antigo.txt": "carteira de identidade registro geral rg ssp orgao emissor",
		"CPF_João_Santos.pdf":  "%PDF-1.4 binary",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(docs, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// get performs a GET request to path and returns the response.
func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// post performs a POST request to path with the given JSON body.
func (e *testEnv) post(t *testing.T, path string, body io.Reader) *http.Response {
	t.Helper()
	resp, err := e.client.Post(e.srv.URL+path, "application/json", body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// requireStatus fails the test if the response status code != want.
func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d\nbody: %s", want, resp.StatusCode, body)
	}
}

// decodeJSON decodes the response body into v, failing the test on error.
func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
}

// requireContentType fails if the Content-Type header doesn't contain want.
func requireContentType(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		t.Fatalf("missing Content-Type header, expected %q", want)
	}
	// Check prefix only (ignores "; charset=utf-8" suffix)
	if len(ct) < len(want) || ct[:len(want)] != want {
		t.Fatalf("Content-Type: got %q, want prefix %q", ct, want)
	}
}

type progressSnapshot struct {
	IsScanning   bool      `json:"is_scanning"`
	TotalScanned int64     `json:"total_scanned"`
	StartTime    time.Time `json:"start_time"`
}

func (e *testEnv) progress(t *testing.T) progressSnapshot {
	t.Helper()
	resp := e.get(t, "/api/progress")
	requireStatus(t, resp, http.StatusOK)
	var snap progressSnapshot
	decodeJSON(t, resp, &snap)
	return snap
}

// runScan starts a scan through the API and waits for it to finish. The
// start time distinguishes this pass from an earlier finished one.
func (e *testEnv) runScan(t *testing.T) progressSnapshot {
	t.Helper()
	before := e.progress(t).StartTime

	resp := e.post(t, "/api/scans", nil)
	requireStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := e.progress(t)
		if !snap.IsScanning && snap.StartTime.After(before) {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan did not finish in time")
	return progressSnapshot{}
}

// jsonBody builds a reader over a JSON-encoded value.
func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

// formatURL is a helper for building query-param URLs.
func formatURL(path string, params map[string]string) string {
	url := path
	sep := "?"
	for k, v := range params {
		url += fmt.Sprintf("%s%s=%s", sep, k, v)
		sep = "&"
	}
	return url
}
