package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hmorsi/coursewright/internal/curriculum"
	"github.com/hmorsi/coursewright/internal/pipeline"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var input curriculum.ProgramInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if res := input.Validate(); !res.OK() {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "invalid programme input",
			"details":  res.Errors,
			"warnings": res.Warnings,
		})
		return
	}

	id, err := s.starter.StartJob(r.Context(), input)
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			respondError(w, http.StatusServiceUnavailable, "job queue full, retry later")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to start job")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*pipeline.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, pipeline.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, pipeline.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.Status != pipeline.StatusCompleted {
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":    "job not completed",
			"status":   job.Status,
			"stage":    job.Stage,
			"progress": job.Progress,
		})
		return
	}

	result, err := s.store.GetResult(r.Context(), id)
	if err != nil || result == nil {
		respondError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
