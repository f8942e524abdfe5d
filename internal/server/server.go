// Package server exposes the scheduling engine and the surrounding tracker
// over HTTP/JSON.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/waynehead99/SmartSchedular/internal/config"
	"github.com/waynehead99/SmartSchedular/internal/schedule"
	"github.com/waynehead99/SmartSchedular/internal/store"
)

type Server struct {
	engine    *schedule.Engine
	committer *schedule.Committer
	db        *store.DB
	log       zerolog.Logger
	httpSrv   *http.Server
}

func New(cfg config.ServerConfig, engine *schedule.Engine, committer *schedule.Committer, db *store.DB, log zerolog.Logger) *Server {
	s := &Server{
		engine:    engine,
		committer: committer,
		db:        db,
		log:       log,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/schedule/suggest", s.handleSuggest)
	mux.HandleFunc("POST /api/schedule/approve", s.handleApprove)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)

	mux.HandleFunc("GET /api/calendar", s.handleListIntervals)
	mux.HandleFunc("POST /api/calendar", s.handleCreateInterval)
	mux.HandleFunc("DELETE /api/calendar/{id}", s.handleDeleteInterval)

	mux.HandleFunc("GET /api/project-status", s.handleProjectStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}
