// Package api exposes the live status of a pipeline run over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// Server serves per-job outcomes and the pipeline verdict while a run is in
// flight. It observes the scheduler; outcomes appear as jobs settle.
type Server struct {
	mu      sync.RWMutex
	name    string
	results map[string]model.Result
	verdict model.Verdict
	done    bool

	srv *http.Server
}

// NewServer creates a status server for the named pipeline.
func NewServer(name string) *Server {
	s := &Server{
		name:    name,
		results: make(map[string]model.Result),
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/status", s.handleStatus)
	router.Get("/verdict", s.handleVerdict)

	s.srv = &http.Server{Handler: router}

	return s
}

// Start begins listening on addr. It returns once the listener is running;
// serve errors after that are ignored since the run outcome does not depend
// on the status endpoint.
func (s *Server) Start(addr string) error {
	s.srv.Addr = addr

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		_ = s.srv.Serve(ln)
	}()

	return nil
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := statusResponse{
		Pipeline: s.name,
		Jobs:     make(map[string]jobStatus, len(s.results)),
	}
	for id, res := range s.results {
		out.Jobs[id] = jobStatus{
			Outcome:  string(res.Outcome),
			Required: res.Required,
			Reason:   res.Reason,
			Cause:    res.Cause,
			Duration: res.Duration.String(),
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVerdict(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	done, verdict := s.done, s.verdict
	s.mu.RUnlock()

	if !done {
		writeJSON(w, http.StatusOK, verdictResponse{Verdict: "pending"})
		return
	}

	writeJSON(w, http.StatusOK, verdictResponse{Verdict: string(verdict)})
}

type statusResponse struct {
	Pipeline string               `json:"pipeline"`
	Jobs     map[string]jobStatus `json:"jobs"`
}

type jobStatus struct {
	Outcome  string `json:"outcome"`
	Required bool   `json:"required"`
	Reason   string `json:"reason,omitempty"`
	Cause    string `json:"cause,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type verdictResponse struct {
	Verdict string `json:"verdict"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JobStarted implements model.RunObserver.
func (s *Server) JobStarted(job model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[job.ID] = model.Result{
		JobID:    job.ID,
		Required: job.Required,
		Outcome:  model.OutcomeRunning,
	}
}

// JobSettled implements model.RunObserver.
func (s *Server) JobSettled(_ model.Job, res model.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[res.JobID] = res
}

// RunFinished implements model.RunObserver.
func (s *Server) RunFinished(verdict model.Verdict, results map[string]model.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, res := range results {
		s.results[id] = res
	}
	s.verdict = verdict
	s.done = true
}

var _ model.RunObserver = (*Server)(nil)

// ShutdownGrace is how long callers should wait for in-flight status
// requests when the run ends.
const ShutdownGrace = 2 * time.Second
