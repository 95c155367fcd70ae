package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/docpadron/docpadron/internal/scheduler"
	"github.com/docpadron/docpadron/internal/store"
	"github.com/docpadron/docpadron/internal/worker"
)

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	Store   *store.Store
	Worker  *worker.Worker
	Sched   *scheduler.Scheduler
	Version string
}

type statusResponse struct {
	Version            string        `json:"version"`
	Worker             workerInfo    `json:"worker"`
	Schedule           *scheduleInfo `json:"schedule"`
	PendingSuggestions int64         `json:"pending_suggestions"`
	AnalyzedFiles      int64         `json:"analyzed_files"`
}

type workerInfo struct {
	Running          bool  `json:"running"`
	Configured       bool  `json:"configured"`
	PollIntervalSecs int64 `json:"poll_interval_secs"`
	PendingCount     int64 `json:"pending_count"`
}

type scheduleInfo struct {
	Cron      string     `json:"cron"`
	NextRunAt *time.Time `json:"next_run_at"`
}

// ServeHTTP returns the system status as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ws := h.Worker.Status(ctx)
	resp := statusResponse{
		Version: h.Version,
		Worker: workerInfo{
			Running:          ws.Running,
			Configured:       ws.Configured,
			PollIntervalSecs: int64(ws.PollInterval.Seconds()),
			PendingCount:     ws.PendingCount,
		},
	}

	if h.Sched != nil && h.Sched.CronExpr() != "" {
		resp.Schedule = &scheduleInfo{
			Cron:      h.Sched.CronExpr(),
			NextRunAt: h.Sched.NextRunAt(),
		}
	}

	suggestions, err := h.Store.ListPendingSuggestions(ctx, "")
	if err != nil {
		slog.Error("status: list pending suggestions", "error", err)
	}
	resp.PendingSuggestions = int64(len(suggestions))

	if n, err := h.Store.AnalyzedCount(ctx); err == nil {
		resp.AnalyzedFiles = n
	}

	writeJSON(w, http.StatusOK, resp)
}
