package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/docpadron/docpadron/internal/classify"
	internaldb "github.com/docpadron/docpadron/internal/db"
	"github.com/docpadron/docpadron/internal/drive"
	"github.com/docpadron/docpadron/internal/scan"
	"github.com/docpadron/docpadron/internal/store"
)

func mustOpenStore(tb testing.TB) *store.Store {
	tb.Helper()
	dbPath := filepath.Join(tb.TempDir(), "test.db")
	db, err := internaldb.Open(dbPath)
	if err != nil {
		tb.Fatalf("open test DB: %v", err)
	}
	if err := internaldb.RunMigrations(db); err != nil {
		db.Close()
		tb.Fatalf("run migrations: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	return store.New(db)
}

func mustClassifier(tb testing.TB) *classify.Classifier {
	tb.Helper()
	tx, err := classify.DefaultTaxonomy()
	if err != nil {
		tb.Fatalf("load taxonomy: %v", err)
	}
	return classify.New(tx)
}

// stubProvider serves one employee with one personal-documents folder.
type stubProvider struct {
	files []drive.File
}

func (p *stubProvider) ListFolder(ctx context.Context, driveID, parentID string) (drive.Listing, error) {
	switch parentID {
	case "root":
		return drive.Listing{Folders: []drive.Folder{{ID: "emp1", Name: "1.0 - João Da Silva Santos"}}}, nil
	case "emp1":
		return drive.Listing{Folders: []drive.Folder{{ID: "docs", Name: "01 - Documentos Pessoais"}}}, nil
	case "docs":
		return drive.Listing{Files: p.files}, nil
	}
	return drive.Listing{}, nil
}

func (p *stubProvider) Download(ctx context.Context, fileID string) ([]byte, error) {
	return nil, &drive.TransientError{Err: errors.New("download unavailable")}
}

func (p *stubProvider) Rename(ctx context.Context, fileID, newName string) error {
	return nil
}

func newTestWorker(tb testing.TB, provider drive.Provider, opts Options) (*Worker, *store.Store) {
	tb.Helper()
	st := mustOpenStore(tb)
	sc := scan.New(provider, st, scan.NewProgress(), 0)
	w := New(st, mustClassifier(tb), sc, provider, nil, opts)
	return w, st
}

func TestProcessBatchCreatesSuggestions(t *testing.T) {
	provider := &stubProvider{files: []drive.File{
		{ID: "f1", Name: "RG_Joao.pdf", ModifiedTime: "2024-01-01T00:00:00Z"},
	}}
	w, st := newTestWorker(t, provider, Options{BatchSize: 10, MaxWorkers: 2})
	w.Configure("drive-1", "root")
	ctx := context.Background()

	if err := w.TriggerScan(ctx); err != nil {
		t.Fatalf("scan: %v", err)
	}

	res, err := w.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if res.Processed != 1 || res.Suggested != 1 || res.Failed != 0 {
		t.Errorf("batch result: %+v", res)
	}

	suggestions, err := st.ListPendingSuggestions(ctx, "")
	if err != nil {
		t.Fatalf("list suggestions: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("suggestions: got %d, want 1", len(suggestions))
	}
	sg := suggestions[0]
	if sg.SuggestedName != "RG_João_Santos.pdf" || sg.DocumentType != "RG" {
		t.Errorf("suggestion: %+v", sg)
	}

	// The entry is processed and cached under its scan-time mtime.
	if n, _ := st.PendingCount(ctx); n != 0 {
		t.Errorf("pending after drain: got %d, want 0", n)
	}
	cached, err := st.IsCached(ctx, "f1", "2024-01-01T00:00:00Z")
	if err != nil || !cached {
		t.Errorf("cache after drain: cached=%v err=%v", cached, err)
	}

	// A second scan pass must now skip the file entirely.
	if err := w.TriggerScan(ctx); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if n, _ := st.PendingCount(ctx); n != 0 {
		t.Errorf("file re-enqueued despite cache: pending=%d", n)
	}
}

func TestProcessBatchKeepsStandardizedNames(t *testing.T) {
	provider := &stubProvider{files: []drive.File{
		{ID: "f1", Name: "RG_João_Santos.pdf", ModifiedTime: "2024-01-01T00:00:00Z"},
	}}
	w, st := newTestWorker(t, provider, Options{BatchSize: 10, MaxWorkers: 1})
	w.Configure("drive-1", "root")
	ctx := context.Background()

	if err := w.TriggerScan(ctx); err != nil {
		t.Fatalf("scan: %v", err)
	}
	res, err := w.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if res.Kept != 1 || res.Suggested != 0 {
		t.Errorf("batch result: %+v", res)
	}

	suggestions, _ := st.ListPendingSuggestions(ctx, "")
	if len(suggestions) != 0 {
		t.Errorf("no suggestion row expected, got %d", len(suggestions))
	}
	cached, _ := st.IsCached(ctx, "f1", "2024-01-01T00:00:00Z")
	if !cached {
		t.Error("cache entry expected for standardized file")
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	w, _ := newTestWorker(t, &stubProvider{}, Options{BatchSize: 5, MaxWorkers: 2})
	res, err := w.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if res.Processed != 0 {
		t.Errorf("empty queue processed %d entries", res.Processed)
	}
}

func TestStartStopContract(t *testing.T) {
	w, _ := newTestWorker(t, &stubProvider{}, Options{
		PollInterval: 10 * time.Millisecond,
		ScanInterval: time.Hour,
		BatchSize:    5,
		MaxWorkers:   1,
	})

	// Unconfigured start is safe: the loop idles.
	w.Start()
	w.Start() // second start is a no-op
	time.Sleep(30 * time.Millisecond)

	st := w.Status(context.Background())
	if !st.Running {
		t.Error("worker should report running")
	}
	if st.Configured {
		t.Error("worker should report unconfigured")
	}

	w.Stop()
	w.Stop() // second stop is a no-op
	if w.Status(context.Background()).Running {
		t.Error("worker should report stopped")
	}
}

func TestWorkerLoopDrainsQueue(t *testing.T) {
	provider := &stubProvider{files: []drive.File{
		{ID: "f1", Name: "cpf frente.pdf", ModifiedTime: "2024-03-01T00:00:00Z"},
	}}
	w, st := newTestWorker(t, provider, Options{
		PollInterval: 10 * time.Millisecond,
		ScanInterval: time.Hour,
		BatchSize:    5,
		MaxWorkers:   2,
		AutoScan:     true,
	})
	w.Configure("drive-1", "root")

	w.Start()
	defer w.Stop()

	deadline := time.After(3 * time.Second)
	for {
		suggestions, err := st.ListPendingSuggestions(context.Background(), "")
		if err == nil && len(suggestions) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker loop did not produce a suggestion in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
