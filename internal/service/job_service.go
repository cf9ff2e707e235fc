package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/dispatch"
	"github.com/curiolab/curio-api/internal/domain"
	"github.com/curiolab/curio-api/internal/observability"
	"github.com/curiolab/curio-api/internal/store"
)

// Common sentinel errors for JobService
var (
	// ErrJobNotFound indicates that the job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrEmptyIdea indicates the request carried no idea text. No job is
	// created in this case.
	ErrEmptyIdea = errors.New("idea cannot be empty")
)

// JobServiceError wraps errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g., "start_job", "get_job")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a new JobServiceError. Known sentinel errors are
// returned directly without wrapping.
func NewJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrEmptyIdea) {
		return err
	}
	if errors.Is(err, store.ErrJobNotFound) {
		return ErrJobNotFound
	}
	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// StartJobRequest is one concept-generation request as received from the API.
type StartJobRequest struct {
	Idea        string
	BaseConcept *domain.BaseConcept
	Tenant      domain.TenantConfig
}

// JobService is the launcher side of the pipeline: it accepts requests,
// persists the pending job, and hands it to a worker.
type JobService interface {
	// StartJob validates the request, creates a PENDING job, and dispatches
	// it. The returned job reflects the state at dispatch time; processing
	// continues in the background.
	StartJob(ctx context.Context, req StartJobRequest) (*domain.Job, error)

	// GetJob returns the current snapshot of a job.
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)
}

type jobServiceImpl struct {
	jobs       store.JobStore
	dispatcher dispatch.Dispatcher
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewJobService creates a new JobService. It returns an error if any of the
// required dependencies are nil.
func NewJobService(
	jobs store.JobStore,
	dispatcher dispatch.Dispatcher,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (JobService, error) {
	if jobs == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "job store cannot be nil",
		}
	}
	if dispatcher == nil {
		return nil, &JobServiceError{
			Operation: "create_service",
			Message:   "dispatcher cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobs:       jobs,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.With("component", "job_service"),
	}, nil
}

// StartJob creates and dispatches one job. A dispatch failure marks the job
// FAILED before the error is returned, so no job is ever left waiting for a
// worker that will never come.
func (s *jobServiceImpl) StartJob(ctx context.Context, req StartJobRequest) (*domain.Job, error) {
	if strings.TrimSpace(req.Idea) == "" {
		return nil, ErrEmptyIdea
	}

	job := domain.NewJob()
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist new job",
			"error", err,
			"job_id", job.ID)
		return nil, NewJobServiceError("start_job", "failed to persist job", err)
	}

	s.metrics.RecordJobStarted(ctx)
	s.logger.InfoContext(ctx, "job created with pending status", "job_id", job.ID)

	err := s.dispatcher.Dispatch(ctx, dispatch.Request{
		JobID:       job.ID,
		Idea:        req.Idea,
		BaseConcept: req.BaseConcept,
		Tenant:      req.Tenant,
	})
	if err != nil {
		s.failDispatchedJob(ctx, job.ID, err)
		return nil, NewJobServiceError("start_job", "failed to dispatch job", err)
	}

	s.logger.InfoContext(ctx, "job dispatched", "job_id", job.ID)
	return job, nil
}

// GetJob returns the job snapshot for the given ID.
func (s *jobServiceImpl) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, NewJobServiceError("get_job", "failed to load job", err)
	}
	return job, nil
}

// failDispatchedJob records a dispatch failure on the job so clients see a
// terminal FAILED state instead of a job stuck in PENDING.
func (s *jobServiceImpl) failDispatchedJob(ctx context.Context, jobID uuid.UUID, cause error) {
	message := fmt.Sprintf("dispatch failed: %v", cause)
	err := s.jobs.UpdateJob(ctx, jobID, func(j *domain.Job) error {
		return j.MarkFailed(message)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mark job failed after dispatch failure",
			"error", err,
			"job_id", jobID,
			"dispatch_error", cause)
		return
	}
	s.metrics.RecordJobFinished(ctx, string(domain.JobStatusFailed))
	s.logger.WarnContext(ctx, "job marked failed after dispatch failure",
		"job_id", jobID,
		"dispatch_error", cause)
}
