package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calegari/polyingest/internal/pipeline"
)

type startRunRequest struct {
	Paths []string `json:"paths"`
}

type startRunResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	PollURL string `json:"poll_url"`
}

// handleStartRun accepts a batch of document paths, registers a run and
// processes it in the background. The response carries the poll URL.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Paths) == 0 {
		jsonError(w, http.StatusBadRequest, "paths must not be empty")
		return
	}

	run := pipeline.NewRun(req.Paths)
	s.runs.Put(run)

	// The run outlives the request; detach from its context.
	go func() {
		run.SetRunning()
		report, err := s.orchestrator.Run(context.Background(), run.Paths)
		if err != nil {
			s.log.Error("run failed", "run_id", run.ID, "error", err)
			run.Fail(err.Error())
			return
		}
		run.Complete(report)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(startRunResponse{
		RunID:   run.ID,
		Status:  string(pipeline.RunQueued),
		PollURL: fmt.Sprintf("/api/runs/%s", run.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.runs.Get(runID)
	if run == nil {
		jsonError(w, http.StatusNotFound, "run not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
