package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/docpadron/docpadron/internal/store"
)

// SuggestionsHandler serves the rename suggestion review surface.
type SuggestionsHandler struct {
	Store *store.Store
}

// List returns pending suggestions, optionally filtered by the employee
// query parameter.
func (h *SuggestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee")
	items, err := h.Store.ListPendingSuggestions(r.Context(), employee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[store.Suggestion]{Items: items, Total: len(items)})
}

// ByEmployee returns a per-employee count of pending suggestions.
func (h *SuggestionsHandler) ByEmployee(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.PendingByEmployee(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[store.EmployeeSummary]{Items: items, Total: len(items)})
}

// Get returns a single suggestion by id.
func (h *SuggestionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := suggestionID(w, r)
	if !ok {
		return
	}
	sg, err := h.Store.GetSuggestion(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "suggestion not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
}

// Approve marks a pending suggestion approved and records who approved
// it. Suggestions past pending return 404.
func (h *SuggestionsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := suggestionID(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.ApprovedBy == "" {
		req.ApprovedBy = "api"
	}

	ctx := r.Context()
	if err := h.Store.Approve(ctx, id, req.ApprovedBy); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no pending suggestion with that id")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	sg, err := h.Store.GetSuggestion(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	h.audit(r, sg.FileID, "approved", fmt.Sprintf("%s -> %s by %s", sg.OriginalName, sg.SuggestedName, req.ApprovedBy))
	writeJSON(w, http.StatusOK, sg)
}

// Reject marks a pending suggestion rejected. Rejection is terminal.
func (h *SuggestionsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := suggestionID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sg, err := h.Store.GetSuggestion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "suggestion not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	if err := h.Store.Reject(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no pending suggestion with that id")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	h.audit(r, sg.FileID, "rejected", fmt.Sprintf("kept %s", sg.OriginalName))
	writeJSON(w, http.StatusOK, map[string]string{"status": store.SuggestionRejected})
}

type approveBatchRequest struct {
	IDs        []int64 `json:"ids"`
	ApprovedBy string  `json:"approved_by"`
}

type approveBatchItem struct {
	ID    int64  `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ApproveBatch approves several suggestions in one call. Each id gets an
// individual outcome so one missing suggestion does not fail the rest.
func (h *SuggestionsHandler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	var req approveBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "ids is required")
		return
	}
	if req.ApprovedBy == "" {
		req.ApprovedBy = "api"
	}

	ctx := r.Context()
	items := make([]approveBatchItem, 0, len(req.IDs))
	approved := 0
	for _, id := range req.IDs {
		err := h.Store.Approve(ctx, id, req.ApprovedBy)
		switch {
		case err == nil:
			approved++
			if sg, gerr := h.Store.GetSuggestion(ctx, id); gerr == nil {
				h.audit(r, sg.FileID, "approved", fmt.Sprintf("%s -> %s by %s", sg.OriginalName, sg.SuggestedName, req.ApprovedBy))
			}
			items = append(items, approveBatchItem{ID: id, OK: true})
		case errors.Is(err, store.ErrNotFound):
			items = append(items, approveBatchItem{ID: id, OK: false, Error: "no pending suggestion with that id"})
		default:
			items = append(items, approveBatchItem{ID: id, OK: false, Error: err.Error()})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"approved": approved,
		"items":    items,
	})
}

type resultRequest struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result records the outcome of an approved rename: the caller that
// performed the rename reports applied or failed. Terminal suggestions
// are left untouched.
func (h *SuggestionsHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := suggestionID(w, r)
	if !ok {
		return
	}
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Status != store.SuggestionApplied && req.Status != store.SuggestionFailed {
		writeError(w, http.StatusBadRequest, "bad_request", "status must be applied or failed")
		return
	}

	ctx := r.Context()
	sg, err := h.Store.GetSuggestion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "suggestion not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	// Terminal rows keep their status; reporting against them is a no-op.
	if sg.Status == store.SuggestionRejected || sg.Status == store.SuggestionApplied || sg.Status == store.SuggestionFailed {
		writeJSON(w, http.StatusOK, map[string]string{"status": sg.Status})
		return
	}

	if err := h.Store.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{"status": sg.Status})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	details := fmt.Sprintf("%s -> %s", sg.OriginalName, sg.SuggestedName)
	if req.Status == store.SuggestionFailed && req.Error != "" {
		details = fmt.Sprintf("%s: %s", details, req.Error)
	}
	h.audit(r, sg.FileID, "rename_"+req.Status, details)
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *SuggestionsHandler) audit(r *http.Request, fileID, action, details string) {
	_ = h.Store.AppendLog(r.Context(), fileID, action, details)
}

func suggestionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
