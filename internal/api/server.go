package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docpadron/docpadron/internal/api/handlers"
	"github.com/docpadron/docpadron/internal/scan"
	"github.com/docpadron/docpadron/internal/scheduler"
	"github.com/docpadron/docpadron/internal/store"
	"github.com/docpadron/docpadron/internal/worker"
)

// Server holds the HTTP server and all handler dependencies.
type Server struct {
	addr string
	srv  *http.Server
}

// NewRouter wires all routes. Split from New so tests can serve the
// router through httptest.
func NewRouter(st *store.Store, wk *worker.Worker, sc *scan.Scanner, sched *scheduler.Scheduler, version string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{Store: st, Worker: wk, Sched: sched, Version: version}
	scansH := &handlers.ScansHandler{Worker: wk, Scanner: sc}
	suggestionsH := &handlers.SuggestionsHandler{Store: st}
	workerH := &handlers.WorkerHandler{Worker: wk}
	logH := &handlers.LogHandler{Store: st}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)

		r.Post("/scans", scansH.Create)
		r.Get("/progress", scansH.Progress)

		r.Get("/suggestions", suggestionsH.List)
		r.Get("/suggestions/by-employee", suggestionsH.ByEmployee)
		r.Post("/suggestions/approve", suggestionsH.ApproveBatch)
		r.Get("/suggestions/{id}", suggestionsH.Get)
		r.Post("/suggestions/{id}/approve", suggestionsH.Approve)
		r.Post("/suggestions/{id}/reject", suggestionsH.Reject)
		r.Post("/suggestions/{id}/result", suggestionsH.Result)

		r.Get("/log", logH.Recent)

		r.Get("/worker", workerH.Status)
		r.Post("/worker/start", workerH.Start)
		r.Post("/worker/stop", workerH.Stop)
	})

	return r
}

// New builds a Server around the wired router.
func New(addr string, st *store.Store, wk *worker.Worker, sc *scan.Scanner, sched *scheduler.Scheduler, version string) *Server {
	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: NewRouter(st, wk, sc, sched, version)},
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
