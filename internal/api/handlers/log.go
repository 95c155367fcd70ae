package handlers

import (
	"net/http"
	"strconv"

	"github.com/docpadron/docpadron/internal/store"
)

// LogHandler serves the processing audit trail.
type LogHandler struct {
	Store *store.Store
}

// Recent returns the newest audit entries. The limit query parameter caps
// the page size (default 50, max 500).
func (h *LogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}

	entries, err := h.Store.RecentLog(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[store.LogEntry]{Items: entries, Total: len(entries)})
}
