package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/api/shared"
	"github.com/curiolab/curio-api/internal/task"
)

// WorkerHandler handles the internal dispatch endpoint that remote launchers
// post jobs to. It sits behind the dispatch-token middleware.
type WorkerHandler struct {
	factory   task.TaskFactory
	submitter task.TaskSubmitter
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(factory task.TaskFactory, submitter task.TaskSubmitter) *WorkerHandler {
	return &WorkerHandler{
		factory:   factory,
		submitter: submitter,
	}
}

// EnqueueConceptGeneration handles POST /internal/tasks/concept-generation.
// The body is the dispatch payload; 202 means the worker owns the job now,
// 503 means the queue is full and the dispatcher must treat it as a failure.
func (h *WorkerHandler) EnqueueConceptGeneration(w http.ResponseWriter, r *http.Request) {
	var payload task.ConceptGenerationPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if payload.JobID == uuid.Nil || payload.Idea == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "jobId and idea are required")
		return
	}

	// The dispatch token is minted per job; a mismatched body is rejected.
	if tokenJobID, ok := r.Context().Value(shared.DispatchJobIDKey).(uuid.UUID); ok && tokenJobID != payload.JobID {
		shared.RespondWithError(w, r, http.StatusForbidden, "Token was not issued for this job")
		return
	}

	t, err := h.factory.CreateTask(payload)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Invalid task payload", err)
		return
	}

	if err := h.submitter.Submit(r.Context(), t); err != nil {
		if errors.Is(err, task.ErrQueueFull) || errors.Is(err, task.ErrRunnerStopped) {
			shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Worker queue is full")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to enqueue task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"jobId": payload.JobID.String(),
	})
}
