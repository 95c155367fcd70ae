package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a suggestion id does not exist.
var ErrNotFound = errors.New("suggestion not found")

// Queue statuses.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// Suggestion statuses. Rejected, applied and failed are terminal.
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionRejected = "rejected"
	SuggestionApplied  = "applied"
	SuggestionFailed   = "failed"
)

// PendingEntry is a discovered file awaiting classification. The
// modification time observed at discovery is carried along so the cache
// row written after analysis matches the scanned version.
type PendingEntry struct {
	ID           int64
	FileID       string
	FileName     string
	EmployeeCode string
	EmployeeName string
	FolderType   string
	DriveID      string
	ModifiedTime string
	MimeType     string
	AddedAt      time.Time
	Status       string
}

// Suggestion is a proposed rename awaiting or past human approval.
// At most one row exists per file: re-analysis replaces the prior row.
type Suggestion struct {
	ID            int64      `json:"id"`
	FileID        string     `json:"file_id"`
	OriginalName  string     `json:"original_name"`
	SuggestedName string     `json:"suggested_name"`
	DocumentType  string     `json:"document_type"`
	EmployeeCode  string     `json:"employee_code"`
	EmployeeName  string     `json:"employee_name"`
	FolderType    string     `json:"folder_type"`
	DriveID       string     `json:"drive_id"`
	Confidence    float64    `json:"confidence"`
	ExtractedText string     `json:"extracted_text,omitempty"`
	AnalyzedAt    time.Time  `json:"analyzed_at"`
	Status        string     `json:"status"`
	ApprovedBy    string     `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
}

// CacheEntry records that a file at a given modification time has already
// been analyzed, so scans can skip it until it changes.
type CacheEntry struct {
	FileID       string
	FileName     string
	ModifiedTime string
	NeedsRename  bool
	EmployeeCode string
	FolderType   string
}

// LogEntry is one row of the append-only audit trail.
type LogEntry struct {
	FileID      string    `json:"file_id"`
	Action      string    `json:"action"`
	Details     string    `json:"details"`
	ProcessedAt time.Time `json:"processed_at"`
}

// EmployeeSummary aggregates pending suggestions per employee.
type EmployeeSummary struct {
	EmployeeCode string `json:"employee_code"`
	EmployeeName string `json:"employee_name"`
	PendingCount int64  `json:"pending_count"`
}

// Store is the durable record of queue entries, rename suggestions, the
// analyzed cache and the audit log. It assumes a single worker process;
// concurrent single-row operations are safe, multi-row transactions are
// not required.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Enqueue inserts a pending entry unless one already exists for the same
// file id. Returns true when a new row was created.
func (s *Store) Enqueue(ctx context.Context, e PendingEntry) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO pending_analysis
			(file_id, file_name, employee_code, employee_name, folder_type, drive_id, modified_time, mime_type, added_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		e.FileID, e.FileName, e.EmployeeCode, e.EmployeeName, e.FolderType, e.DriveID,
		e.ModifiedTime, e.MimeType, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", e.FileID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DequeueBatch returns up to limit pending entries, oldest first. Entries
// are not locked: the design assumes at most one worker loop per process.
func (s *Store) DequeueBatch(ctx context.Context, limit int) ([]PendingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, file_name, employee_code, employee_name, folder_type, drive_id,
		       COALESCE(modified_time, ''), COALESCE(mime_type, ''), added_at, status
		FROM pending_analysis
		WHERE status = 'pending'
		ORDER BY added_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue batch: %w", err)
	}
	defer rows.Close()

	var entries []PendingEntry
	for rows.Next() {
		var e PendingEntry
		var addedAt int64
		if err := rows.Scan(&e.ID, &e.FileID, &e.FileName, &e.EmployeeCode, &e.EmployeeName,
			&e.FolderType, &e.DriveID, &e.ModifiedTime, &e.MimeType, &addedAt, &e.Status); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		e.AddedAt = time.Unix(addedAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PendingCount returns the number of queued entries not yet processed.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_analysis WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return n, nil
}

// MarkProcessed flips a queue entry to processed.
func (s *Store) MarkProcessed(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pending_analysis SET status = 'processed' WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", fileID, err)
	}
	return nil
}

// UpsertSuggestion stores a suggestion, replacing any prior suggestion for
// the same file id.
func (s *Store) UpsertSuggestion(ctx context.Context, sg Suggestion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rename_suggestions
			(file_id, original_name, suggested_name, document_type,
			 employee_code, employee_name, folder_type, drive_id,
			 confidence, extracted_text, analyzed_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
		sg.FileID, sg.OriginalName, sg.SuggestedName, sg.DocumentType,
		sg.EmployeeCode, sg.EmployeeName, sg.FolderType, sg.DriveID,
		sg.Confidence, sg.ExtractedText, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert suggestion %s: %w", sg.FileID, err)
	}
	return nil
}

// ListPendingSuggestions returns pending suggestions, newest analysis
// first. employeeCode filters when non-empty.
func (s *Store) ListPendingSuggestions(ctx context.Context, employeeCode string) ([]Suggestion, error) {
	query := `
		SELECT id, file_id, original_name, suggested_name, document_type,
		       employee_code, employee_name, folder_type, drive_id,
		       confidence, COALESCE(extracted_text, ''), analyzed_at, status,
		       COALESCE(approved_by, ''), approved_at
		FROM rename_suggestions
		WHERE status = 'pending'`
	args := []any{}
	if employeeCode != "" {
		query += ` AND employee_code = ?`
		args = append(args, employeeCode)
	}
	query += ` ORDER BY analyzed_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// GetSuggestion fetches one suggestion by id. Returns ErrNotFound when the
// id is unknown.
func (s *Store) GetSuggestion(ctx context.Context, id int64) (Suggestion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_id, original_name, suggested_name, document_type,
		       employee_code, employee_name, folder_type, drive_id,
		       confidence, COALESCE(extracted_text, ''), analyzed_at, status,
		       COALESCE(approved_by, ''), approved_at
		FROM rename_suggestions WHERE id = ?`, id)
	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	return sg, err
}

// Approve transitions a pending suggestion to approved, recording the
// approver. Returns ErrNotFound when the id is unknown or the suggestion
// is no longer pending.
func (s *Store) Approve(ctx context.Context, id int64, approvedBy string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rename_suggestions
		SET status = 'approved', approved_by = ?, approved_at = ?
		WHERE id = ? AND status = 'pending'`,
		approvedBy, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("approve suggestion %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reject transitions a pending suggestion to rejected.
func (s *Store) Reject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rename_suggestions
		SET status = 'rejected'
		WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("reject suggestion %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus records the outcome of a rename attempt. Terminal statuses
// (rejected, applied, failed) are never overwritten.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rename_suggestions
		SET status = ?
		WHERE id = ? AND status NOT IN ('rejected', 'applied', 'failed')`,
		status, id)
	if err != nil {
		return fmt.Errorf("update suggestion %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingByEmployee groups pending suggestions per employee, most pending
// first.
func (s *Store) PendingByEmployee(ctx context.Context) ([]EmployeeSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_code, employee_name, COUNT(*)
		FROM rename_suggestions
		WHERE status = 'pending'
		GROUP BY employee_code, employee_name
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("pending by employee: %w", err)
	}
	defer rows.Close()

	var out []EmployeeSummary
	for rows.Next() {
		var es EmployeeSummary
		if err := rows.Scan(&es.EmployeeCode, &es.EmployeeName, &es.PendingCount); err != nil {
			return nil, fmt.Errorf("scan employee summary: %w", err)
		}
		out = append(out, es)
	}
	return out, rows.Err()
}

// IsCached reports whether a file was already analyzed and is unchanged.
// With an empty modifiedTime any cache row counts; otherwise the stored
// modification time must match exactly.
func (s *Store) IsCached(ctx context.Context, fileID, modifiedTime string) (bool, error) {
	var stored sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT modified_time FROM analyzed_cache WHERE file_id = ?`, fileID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache lookup %s: %w", fileID, err)
	}
	if modifiedTime != "" && stored.String != modifiedTime {
		return false, nil
	}
	return true, nil
}

// UpsertCache records a file as analyzed at its current modification time.
func (s *Store) UpsertCache(ctx context.Context, e CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyzed_cache
			(file_id, file_name, modified_time, last_analyzed, needs_rename, employee_code, folder_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.FileID, e.FileName, e.ModifiedTime, time.Now().Unix(),
		e.NeedsRename, e.EmployeeCode, e.FolderType)
	if err != nil {
		return fmt.Errorf("upsert cache %s: %w", e.FileID, err)
	}
	return nil
}

// AnalyzedCount returns the number of files in the analyzed cache.
func (s *Store) AnalyzedCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyzed_cache`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("analyzed count: %w", err)
	}
	return n, nil
}

// AppendLog appends one audit-trail row. Log rows are never updated or
// deleted.
func (s *Store) AppendLog(ctx context.Context, fileID, action, details string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_log (file_id, action, details, processed_at)
		VALUES (?, ?, ?, ?)`,
		fileID, action, details, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("append log %s: %w", fileID, err)
	}
	return nil
}

// RecentLog returns the most recent audit entries, newest first.
func (s *Store) RecentLog(ctx context.Context, limit int) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, action, COALESCE(details, ''), processed_at
		FROM processing_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var le LogEntry
		var at int64
		if err := rows.Scan(&le.FileID, &le.Action, &le.Details, &at); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		le.ProcessedAt = time.Unix(at, 0).UTC()
		out = append(out, le)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (Suggestion, error) {
	var sg Suggestion
	var analyzedAt int64
	var approvedAt sql.NullInt64
	err := row.Scan(&sg.ID, &sg.FileID, &sg.OriginalName, &sg.SuggestedName, &sg.DocumentType,
		&sg.EmployeeCode, &sg.EmployeeName, &sg.FolderType, &sg.DriveID,
		&sg.Confidence, &sg.ExtractedText, &analyzedAt, &sg.Status,
		&sg.ApprovedBy, &approvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Suggestion{}, err
		}
		return Suggestion{}, fmt.Errorf("scan suggestion: %w", err)
	}
	sg.AnalyzedAt = time.Unix(analyzedAt, 0).UTC()
	if approvedAt.Valid {
		t := time.Unix(approvedAt.Int64, 0).UTC()
		sg.ApprovedAt = &t
	}
	return sg, nil
}
