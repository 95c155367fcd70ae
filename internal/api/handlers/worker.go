package handlers

import (
	"net/http"

	"github.com/docpadron/docpadron/internal/worker"
)

// WorkerHandler controls the background worker.
type WorkerHandler struct {
	Worker *worker.Worker
}

// Status reports whether the worker loop is running and how deep the
// queue is.
func (h *WorkerHandler) Status(w http.ResponseWriter, r *http.Request) {
	ws := h.Worker.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"running":            ws.Running,
		"configured":         ws.Configured,
		"poll_interval_secs": int64(ws.PollInterval.Seconds()),
		"pending_count":      ws.PendingCount,
	})
}

// Start launches the worker loop. Starting an already running worker is
// a no-op.
func (h *WorkerHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.Worker.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// Stop halts the worker loop and waits for the in-flight cycle.
func (h *WorkerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.Worker.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
