package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/api/shared"
	"github.com/curiolab/curio-api/internal/service"
)

// JobHandler handles the public job endpoints.
type JobHandler struct {
	jobService service.JobService
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobService service.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
	}
}

// StartJob handles POST /api/jobs requests. Accepted jobs return 202 with
// the job ID; the concept work happens asynchronously.
func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	var req StartJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: idea is required")
		return
	}

	job, err := h.jobService.StartJob(r.Context(), service.StartJobRequest{
		Idea:        req.Idea,
		BaseConcept: req.BaseConcept,
		Tenant:      req.Tenant,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyIdea) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Idea cannot be empty")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to start job", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{jobID} requests, returning the current job
// snapshot including per-concept image state.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load job", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, job)
}
