package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/docpadron/docpadron/internal/drive"
	"github.com/docpadron/docpadron/internal/store"
)

// ErrAlreadyRunning is returned when a scan is started while one is in
// progress. Overlapping passes are serialized rather than interleaved so
// they cannot double-enqueue or race on cache rows.
var ErrAlreadyRunning = errors.New("a scan is already in progress")

// systemFiles are never enqueued.
var systemFiles = map[string]bool{
	"desktop.ini":  true,
	"thumbs.db":    true,
	".ds_store":    true,
	".localized":   true,
	"$recycle.bin": true,
}

// Scanner walks the employee-folder tree through the storage collaborator,
// consults the analyzed cache, and enqueues new or changed files.
// Layout: top level is one folder per employee, second level the fixed
// category subfolders, third level the files.
type Scanner struct {
	provider drive.Provider
	store    *store.Store
	progress *Progress
	pause    time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a Scanner. pause is the throttle between employee folders.
func New(provider drive.Provider, st *store.Store, progress *Progress, pause time.Duration) *Scanner {
	return &Scanner{provider: provider, store: st, progress: progress, pause: pause}
}

// Progress exposes the scanner's progress reporter.
func (s *Scanner) Progress() *Progress {
	return s.progress
}

// Run performs one full scan pass. A second concurrent call returns
// ErrAlreadyRunning. Traversal errors finish the pass early: whatever was
// already enqueued stays valid.
func (s *Scanner) Run(ctx context.Context, driveID, employeesFolderID string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.progress.Start()
	defer s.progress.Finish()
	s.progress.AddLog("scan started: drive=%s root=%s", driveID, employeesFolderID)
	slog.Info("scan started", "drive_id", driveID, "employees_folder_id", employeesFolderID)

	root, err := s.provider.ListFolder(ctx, driveID, employeesFolderID)
	if err != nil {
		s.progress.AddLog("scan failed: %v", err)
		slog.Error("scan: list employees folder", "error", err)
		return fmt.Errorf("list employees folder: %w", err)
	}

	s.progress.SetTotalEmployees(len(root.Folders))
	s.progress.AddLog("found %d employee folders", len(root.Folders))

	var enqueued int64
	for idx, folder := range root.Folders {
		if ctx.Err() != nil {
			s.progress.AddLog("scan cancelled")
			return ctx.Err()
		}

		code, name := ParseEmployeeFolder(folder.Name)
		s.progress.SetEmployee(idx+1, code+" - "+name)

		n, err := s.scanEmployee(ctx, driveID, folder.ID, code, name)
		enqueued += n
		if err != nil {
			s.progress.AddLog("scan failed at %s: %v", folder.Name, err)
			slog.Error("scan: employee folder", "folder", folder.Name, "error", err)
			return fmt.Errorf("scan employee %q: %w", folder.Name, err)
		}

		// Throttle collaborator call rate between employees.
		if s.pause > 0 {
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	s.progress.AddLog("scan finished: %d file(s) enqueued", enqueued)
	slog.Info("scan finished", "enqueued", enqueued)
	return nil
}

// scanEmployee visits every category subfolder of one employee and
// enqueues files the cache does not already cover.
func (s *Scanner) scanEmployee(ctx context.Context, driveID, folderID, code, name string) (int64, error) {
	contents, err := s.provider.ListFolder(ctx, driveID, folderID)
	if err != nil {
		return 0, fmt.Errorf("list employee folder: %w", err)
	}

	var enqueued int64
	for _, sub := range contents.Folders {
		s.progress.SetDocument("scanning: " + sub.Name)

		listing, err := s.provider.ListFolder(ctx, driveID, sub.ID)
		if err != nil {
			return enqueued, fmt.Errorf("list subfolder %q: %w", sub.Name, err)
		}

		for _, f := range listing.Files {
			if systemFiles[strings.ToLower(f.Name)] {
				continue
			}

			cached, err := s.store.IsCached(ctx, f.ID, f.ModifiedTime)
			if err != nil {
				slog.Warn("scan: cache lookup", "file_id", f.ID, "error", err)
			}
			if cached {
				continue
			}

			created, err := s.store.Enqueue(ctx, store.PendingEntry{
				FileID:       f.ID,
				FileName:     f.Name,
				EmployeeCode: code,
				EmployeeName: name,
				FolderType:   sub.Name,
				DriveID:      driveID,
				ModifiedTime: f.ModifiedTime,
				MimeType:     f.MimeType,
			})
			if err != nil {
				// One failed insert must not abort the pass.
				slog.Warn("scan: enqueue", "file_id", f.ID, "error", err)
				continue
			}
			if created {
				enqueued++
				s.progress.AddScanned(1)
				s.progress.SetDocument(f.Name)
			}
		}
	}
	return enqueued, nil
}

// ParseEmployeeFolder splits an employee folder name into code and name.
// The convention is "<code> - <name>"; without the separator the leading
// dotted segment is the code and the full name is kept as is.
func ParseEmployeeFolder(folderName string) (code, name string) {
	if before, after, found := strings.Cut(folderName, " - "); found {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	if before, _, found := strings.Cut(folderName, "."); found {
		return before, folderName
	}
	return folderName, folderName
}
