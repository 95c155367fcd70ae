package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docpadron/docpadron/internal/classify"
	"github.com/docpadron/docpadron/internal/drive"
	"github.com/docpadron/docpadron/internal/scan"
	"github.com/docpadron/docpadron/internal/store"
)

// Options tunes the background loop.
type Options struct {
	PollInterval time.Duration
	ScanInterval time.Duration
	BatchSize    int
	MaxWorkers   int
	AutoScan     bool
}

// BatchResult aggregates the outcome of one queue drain.
type BatchResult struct {
	Processed int64
	Suggested int64
	Kept      int64
	Failed    int64
}

// Status is a point-in-time view of the worker for external observers.
type Status struct {
	Running      bool          `json:"running"`
	Configured   bool          `json:"configured"`
	PollInterval time.Duration `json:"-"`
	PendingCount int64         `json:"pending_count"`
}

// Worker is the long-lived background loop: it periodically triggers full
// scans and drains batches of queued entries through the classifier. The
// loop is the fault boundary — nothing the scanner, classifier or store
// fails with terminates the process.
type Worker struct {
	store      *store.Store
	classifier *classify.Classifier
	scanner    *scan.Scanner
	provider   drive.Provider
	extractor  drive.Extractor
	opts       Options

	mu       sync.Mutex
	running  bool
	driveID  string
	rootID   string
	lastScan time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a stopped Worker. The extractor may be nil; classification
// then degrades to filename-only decisions.
func New(st *store.Store, cl *classify.Classifier, sc *scan.Scanner, provider drive.Provider, extractor drive.Extractor, opts Options) *Worker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = 5 * time.Minute
	}
	return &Worker{
		store:      st,
		classifier: cl,
		scanner:    sc,
		provider:   provider,
		extractor:  extractor,
		opts:       opts,
	}
}

// Configure sets the drive and employees-folder the auto-scan walks. The
// worker may be started before it is configured; it then idles until this
// is called.
func (w *Worker) Configure(driveID, employeesFolderID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.driveID = driveID
	w.rootID = employeesFolderID
	slog.Info("worker configured", "drive_id", driveID, "employees_folder_id", employeesFolderID)
}

// Start launches the loop. A second call while running is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	go w.loop(ctx)
	slog.Info("worker started", "poll_interval", w.opts.PollInterval)
}

// Stop signals the loop to terminate and waits for it with a bounded
// timeout.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("worker stop timed out")
	}
	slog.Info("worker stopped")
}

// Status reports the worker state and the current queue depth.
func (w *Worker) Status(ctx context.Context) Status {
	w.mu.Lock()
	running := w.running
	configured := w.driveID != "" && w.rootID != ""
	w.mu.Unlock()

	pending, err := w.store.PendingCount(ctx)
	if err != nil {
		slog.Warn("worker status: pending count", "error", err)
	}
	return Status{
		Running:      running,
		Configured:   configured,
		PollInterval: w.opts.PollInterval,
		PendingCount: pending,
	}
}

// TriggerScan runs an ad-hoc scan pass on the configured drive. It shares
// the scanner's single-flight guard with the scheduled pass.
func (w *Worker) TriggerScan(ctx context.Context) error {
	w.mu.Lock()
	driveID, rootID := w.driveID, w.rootID
	w.mu.Unlock()
	if driveID == "" || rootID == "" {
		return errors.New("worker not configured")
	}

	err := w.scanner.Run(ctx, driveID, rootID)
	if err == nil {
		w.mu.Lock()
		w.lastScan = time.Now()
		w.mu.Unlock()
	}
	return err
}

// loop is the cycle described in the worker state machine: scan when due,
// then drain one batch, then sleep until the next tick.
func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		w.runCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCycle performs one scan-if-due plus one batch drain. All failures are
// logged and absorbed here.
func (w *Worker) runCycle(ctx context.Context) {
	if w.scanDue() {
		if err := w.TriggerScan(ctx); err != nil && !errors.Is(err, scan.ErrAlreadyRunning) && ctx.Err() == nil {
			slog.Error("worker: auto-scan", "error", err)
		}
	}

	res, err := w.ProcessBatch(ctx)
	if err != nil && ctx.Err() == nil {
		slog.Error("worker: drain batch", "error", err)
		return
	}
	if res.Processed > 0 {
		slog.Info("worker: batch drained",
			"processed", res.Processed,
			"suggested", res.Suggested,
			"kept", res.Kept,
			"failed", res.Failed)
	}
}

func (w *Worker) scanDue() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.opts.AutoScan || w.driveID == "" || w.rootID == "" {
		return false
	}
	return w.lastScan.IsZero() || time.Since(w.lastScan) >= w.opts.ScanInterval
}

// ProcessBatch drains up to BatchSize entries through the classifier.
// Entries are independent, so they are classified in parallel up to
// MaxWorkers. A failing entry is logged and counted — never aborting the
// rest of the batch — and is still marked processed so a permanently
// broken file cannot loop forever.
func (w *Worker) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var res BatchResult

	pending, err := w.store.DequeueBatch(ctx, w.opts.BatchSize)
	if err != nil {
		return res, fmt.Errorf("dequeue batch: %w", err)
	}
	if len(pending) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.MaxWorkers)

	for _, entry := range pending {
		entry := entry
		g.Go(func() error {
			outcome := w.processEntry(gctx, entry)
			mu.Lock()
			res.Processed++
			switch outcome {
			case outcomeSuggested:
				res.Suggested++
			case outcomeKept:
				res.Kept++
			case outcomeFailed:
				res.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // processEntry never returns an error; failures are counted

	return res, nil
}

type entryOutcome int

const (
	outcomeSuggested entryOutcome = iota
	outcomeKept
	outcomeFailed
)

// processEntry classifies one queued file and persists the decision. All
// fallible steps degrade: a failed download falls back to filename
// classification, failed persistence is logged and the entry is still
// marked processed.
func (w *Worker) processEntry(ctx context.Context, entry store.PendingEntry) entryOutcome {
	progress := w.scanner.Progress()
	progress.SetEmployee(0, entry.EmployeeCode+" - "+entry.EmployeeName)
	progress.SetDocument(entry.FileName)

	text, contentAttempted := w.extractText(ctx, entry)

	result := w.classifier.Classify(classify.Input{
		FileName:         entry.FileName,
		FolderType:       entry.FolderType,
		EmployeeCode:     entry.EmployeeCode,
		EmployeeName:     entry.EmployeeName,
		Text:             text,
		ContentAttempted: contentAttempted,
	})
	progress.AddAnalyzed(1)

	outcome := outcomeKept
	needsRename := result.Action == classify.ActionRename

	if needsRename {
		err := w.store.UpsertSuggestion(ctx, store.Suggestion{
			FileID:        entry.FileID,
			OriginalName:  entry.FileName,
			SuggestedName: result.SuggestedName,
			DocumentType:  result.DocumentType,
			EmployeeCode:  entry.EmployeeCode,
			EmployeeName:  entry.EmployeeName,
			FolderType:    entry.FolderType,
			DriveID:       entry.DriveID,
			Confidence:    result.Confidence,
			ExtractedText: result.TextPreview,
		})
		if err != nil {
			slog.Error("worker: save suggestion", "file_id", entry.FileID, "error", err)
			w.logQuiet(ctx, entry.FileID, "error", "save suggestion: "+err.Error())
			outcome = outcomeFailed
		} else {
			progress.AddSuggestions(1)
			progress.AddLog("suggestion: %s → %s", entry.FileName, result.SuggestedName)
			w.logQuiet(ctx, entry.FileID, "analyzed",
				fmt.Sprintf("suggested %q (%s, confidence %.2f)", result.SuggestedName, result.DocumentType, result.Confidence))
			outcome = outcomeSuggested
		}
	} else {
		w.logQuiet(ctx, entry.FileID, "analyzed", "already standardized")
	}

	err := w.store.UpsertCache(ctx, store.CacheEntry{
		FileID:       entry.FileID,
		FileName:     entry.FileName,
		ModifiedTime: entry.ModifiedTime,
		NeedsRename:  needsRename && outcome == outcomeSuggested,
		EmployeeCode: entry.EmployeeCode,
		FolderType:   entry.FolderType,
	})
	if err != nil {
		slog.Warn("worker: cache update", "file_id", entry.FileID, "error", err)
	}

	// Processed even on failure: retrying a permanently broken file every
	// cycle would wedge the queue.
	if err := w.store.MarkProcessed(ctx, entry.FileID); err != nil {
		slog.Error("worker: mark processed", "file_id", entry.FileID, "error", err)
		outcome = outcomeFailed
	}

	return outcome
}

// extractText downloads the file and runs text extraction when both
// collaborators are available. Returns the text and whether extraction was
// attempted; any failure degrades to ("", attempted).
func (w *Worker) extractText(ctx context.Context, entry store.PendingEntry) (string, bool) {
	if w.provider == nil || w.extractor == nil {
		return "", false
	}

	data, err := w.provider.Download(ctx, entry.FileID)
	if err != nil {
		slog.Warn("worker: download", "file_id", entry.FileID, "error", err)
		return "", true
	}

	text, err := w.extractor.Extract(ctx, data, entry.MimeType)
	if err != nil {
		slog.Warn("worker: extract text", "file_id", entry.FileID, "error", err)
		return "", true
	}
	return text, true
}

// logQuiet appends an audit row, only logging when the append itself
// fails.
func (w *Worker) logQuiet(ctx context.Context, fileID, action, details string) {
	if err := w.store.AppendLog(ctx, fileID, action, details); err != nil {
		slog.Warn("worker: append log", "file_id", fileID, "error", err)
	}
}
