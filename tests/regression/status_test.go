package regression_test

import (
	"net/http"
	"testing"
)

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/status")
	requireStatus(t, resp, http.StatusOK)
	requireContentType(t, resp, "application/json")

	var status struct {
		Version string `json:"version"`
		Worker  struct {
			Running    bool `json:"running"`
			Configured bool `json:"configured"`
		} `json:"worker"`
		PendingSuggestions int64 `json:"pending_suggestions"`
		AnalyzedFiles      int64 `json:"analyzed_files"`
	}
	decodeJSON(t, resp, &status)

	if status.Version != "test" {
		t.Errorf("version = %q, want %q", status.Version, "test")
	}
	if status.Worker.Running {
		t.Error("worker reported running before start")
	}
	if !status.Worker.Configured {
		t.Error("worker reported unconfigured")
	}
	if status.PendingSuggestions != 0 || status.AnalyzedFiles != 0 {
		t.Errorf("fresh instance has counts: %+v", status)
	}
}

func TestWorkerEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/worker/start", nil)
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.get(t, "/api/worker")
	requireStatus(t, resp, http.StatusOK)
	var ws struct {
		Running bool `json:"running"`
	}
	decodeJSON(t, resp, &ws)
	if !ws.Running {
		t.Error("worker not running after start")
	}

	resp = env.post(t, "/api/worker/stop", nil)
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.get(t, "/api/worker")
	decodeJSON(t, resp, &ws)
	if ws.Running {
		t.Error("worker still running after stop")
	}
}
