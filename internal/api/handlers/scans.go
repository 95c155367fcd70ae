package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docpadron/docpadron/internal/scan"
	"github.com/docpadron/docpadron/internal/worker"
)

// ScansHandler starts scans and reports their progress.
type ScansHandler struct {
	Worker  *worker.Worker
	Scanner *scan.Scanner
}

// Create kicks off a scan pass in the background. A 409 is returned if a
// scan is already in flight, 503 if the worker was never configured with
// a drive.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	snap := h.Scanner.Progress().Snapshot()
	if snap.IsScanning {
		writeError(w, http.StatusConflict, "scan_in_progress", "a scan is already in progress")
		return
	}

	ws := h.Worker.Status(r.Context())
	if !ws.Configured {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "no drive configured for scanning")
		return
	}

	go func() {
		if err := h.Worker.TriggerScan(context.Background()); err != nil && !errors.Is(err, scan.ErrAlreadyRunning) {
			slog.Error("manual scan failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// Progress returns a snapshot of the running (or last) scan.
func (h *ScansHandler) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scanner.Progress().Snapshot())
}
