package scan

import (
	"fmt"
	"sync"
	"time"
)

// maxLogLines bounds the rolling log so snapshots stay constant-size.
const maxLogLines = 100

// snapshotLogLines is how many trailing log lines a snapshot exposes.
const snapshotLogLines = 20

// Progress is the shared, lock-protected view of the in-flight scan.
// Writers update it field by field under the lock; observers copy a
// Snapshot out from under the same lock. Derived fields (percentage,
// throughput, elapsed) are computed at read time.
type Progress struct {
	mu sync.Mutex

	isScanning           bool
	totalEmployees       int
	currentEmployeeIndex int
	currentEmployeeName  string
	currentDocument      string
	totalScanned         int64
	totalAnalyzed        int64
	totalSuggestions     int64
	logs                 []string
	startTime            time.Time
}

// Snapshot is a point-in-time copy of the scan progress.
type Snapshot struct {
	IsScanning           bool      `json:"is_scanning"`
	ProgressPercentage   int       `json:"progress_percentage"`
	TotalEmployees       int       `json:"total_employees"`
	CurrentEmployeeIndex int       `json:"current_employee_index"`
	CurrentEmployeeName  string    `json:"current_employee_name"`
	CurrentDocument      string    `json:"current_document"`
	TotalScanned         int64     `json:"total_scanned"`
	TotalAnalyzed        int64     `json:"total_analyzed"`
	TotalSuggestions     int64     `json:"total_suggestions"`
	DocsPerSecond        float64   `json:"docs_per_second"`
	ElapsedSeconds       int64     `json:"elapsed_seconds"`
	StartTime            time.Time `json:"start_time"`
	Logs                 []string  `json:"logs"`
}

// NewProgress returns an idle Progress.
func NewProgress() *Progress {
	return &Progress{}
}

// Start resets all counters and marks a scan as running.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isScanning = true
	p.totalEmployees = 0
	p.currentEmployeeIndex = 0
	p.currentEmployeeName = ""
	p.currentDocument = ""
	p.totalScanned = 0
	p.totalAnalyzed = 0
	p.totalSuggestions = 0
	p.logs = nil
	p.startTime = time.Now()
}

// Finish marks the scan as done. Called on success and on failure.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isScanning = false
	p.currentDocument = "scan finished"
}

// AddLog appends a timestamped line to the rolling log, dropping the
// oldest line once the bound is reached.
func (p *Progress) AddLog(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	p.logs = append(p.logs, line)
	if len(p.logs) > maxLogLines {
		p.logs = p.logs[len(p.logs)-maxLogLines:]
	}
}

// SetTotalEmployees records how many employee folders the scan will visit.
func (p *Progress) SetTotalEmployees(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalEmployees = n
}

// SetEmployee records the employee currently being visited.
func (p *Progress) SetEmployee(index int, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentEmployeeIndex = index
	p.currentEmployeeName = name
}

// SetDocument records the item currently being looked at.
func (p *Progress) SetDocument(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentDocument = name
}

// AddScanned counts files enqueued by the scanner.
func (p *Progress) AddScanned(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalScanned += n
}

// AddAnalyzed counts files classified by the worker.
func (p *Progress) AddAnalyzed(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalAnalyzed += n
}

// AddSuggestions counts rename suggestions produced.
func (p *Progress) AddSuggestions(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalSuggestions += n
}

// Snapshot copies the current state and computes the derived fields.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		IsScanning:           p.isScanning,
		TotalEmployees:       p.totalEmployees,
		CurrentEmployeeIndex: p.currentEmployeeIndex,
		CurrentEmployeeName:  p.currentEmployeeName,
		CurrentDocument:      p.currentDocument,
		TotalScanned:         p.totalScanned,
		TotalAnalyzed:        p.totalAnalyzed,
		TotalSuggestions:     p.totalSuggestions,
		StartTime:            p.startTime,
	}
	if p.totalEmployees > 0 {
		s.ProgressPercentage = p.currentEmployeeIndex * 100 / p.totalEmployees
	}
	if !p.startTime.IsZero() {
		elapsed := time.Since(p.startTime)
		s.ElapsedSeconds = int64(elapsed.Seconds())
		if elapsed > 0 {
			s.DocsPerSecond = float64(p.totalAnalyzed) / elapsed.Seconds()
		}
	}
	if n := len(p.logs); n > 0 {
		start := n - snapshotLogLines
		if start < 0 {
			start = 0
		}
		s.Logs = append([]string(nil), p.logs[start:]...)
	}
	return s
}
