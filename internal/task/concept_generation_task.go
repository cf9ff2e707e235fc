package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/curiolab/curio-api/internal/generation"
	"github.com/curiolab/curio-api/internal/imagery"
	"github.com/curiolab/curio-api/internal/observability"
	"github.com/curiolab/curio-api/internal/store"
)

// Common errors
var (
	ErrNilJobStore   = errors.New("job store cannot be nil")
	ErrNilGenerator  = errors.New("generator cannot be nil")
	ErrNilProviders  = errors.New("image providers cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyTaskJob  = errors.New("job ID cannot be empty")
	ErrEmptyTaskIdea = errors.New("idea cannot be empty")
)

// ImageProviders resolves the image provider variant configured for a tenant.
type ImageProviders interface {
	// ForTenant returns the provider serving the tenant's configured variant.
	ForTenant(tenant domain.TenantConfig) (imagery.Provider, error)
}

// ConceptGenerationPayload is the serialized task data. It is also the body
// of the internal HTTP dispatch endpoint, so field names follow the public
// wire format.
type ConceptGenerationPayload struct {
	JobID       uuid.UUID           `json:"jobId"`
	Idea        string              `json:"idea"`
	BaseConcept *domain.BaseConcept `json:"baseConcept,omitempty"`
	Tenant      domain.TenantConfig `json:"tenant,omitempty"`
}

// ConceptGenerationTask owns one job end to end after dispatch: it generates
// the concept drafts, persists them, fans out per-concept image tasks, and
// moves the job to a terminal status. Per-concept image failures degrade the
// concept, never the job.
type ConceptGenerationTask struct {
	id        uuid.UUID
	payload   ConceptGenerationPayload
	jobs      store.JobStore
	generator generation.ConceptGenerator
	providers ImageProviders
	metrics   *observability.Metrics
	logger    *slog.Logger
	status    TaskStatus
}

// NewConceptGenerationTask creates the worker task for one dispatched job.
func NewConceptGenerationTask(
	payload ConceptGenerationPayload,
	jobs store.JobStore,
	generator generation.ConceptGenerator,
	providers ImageProviders,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*ConceptGenerationTask, error) {
	if jobs == nil {
		return nil, ErrNilJobStore
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if providers == nil {
		return nil, ErrNilProviders
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if payload.JobID == uuid.Nil {
		return nil, ErrEmptyTaskJob
	}
	if payload.Idea == "" {
		return nil, ErrEmptyTaskIdea
	}

	return &ConceptGenerationTask{
		id:        uuid.New(),
		payload:   payload,
		jobs:      jobs,
		generator: generator,
		providers: providers,
		metrics:   metrics,
		logger:    logger.With("task_type", TaskTypeConceptGeneration, "job_id", payload.JobID),
		status:    TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ConceptGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ConceptGenerationTask) Type() string {
	return TaskTypeConceptGeneration
}

// Payload returns the task data as a byte slice
func (t *ConceptGenerationTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *ConceptGenerationTask) Status() TaskStatus {
	return t.status
}

// Execute runs the full concept-generation pipeline for the job. A generation
// failure or a persistence failure marks the job FAILED; once the concept set
// is persisted the job always reaches COMPLETED, with image failures recorded
// on the individual concepts.
func (t *ConceptGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.InfoContext(ctx, "starting concept generation task")

	if err := ctx.Err(); err != nil {
		return t.fail(ctx, fmt.Errorf("task cancelled by context: %w", err))
	}

	// 1. Generate the concept drafts.
	started := time.Now()
	drafts, err := t.generator.GenerateConcepts(ctx, generation.Request{
		Idea:        t.payload.Idea,
		BaseConcept: t.payload.BaseConcept,
		Tenant:      t.payload.Tenant,
	})
	t.metrics.RecordGenerationDuration(ctx, time.Since(started).Seconds())
	if err != nil {
		return t.fail(ctx, fmt.Errorf("concept generation failed: %w", err))
	}
	t.logger.InfoContext(ctx, "concept drafts generated", "count", len(drafts))

	// 2. Resolve the image provider before persisting anything, so a
	// misconfigured tenant fails the job with an empty concept list.
	provider, err := t.providers.ForTenant(t.payload.Tenant)
	if err != nil {
		return t.fail(ctx, fmt.Errorf("image provider selection failed: %w", err))
	}

	// 3. Assign identities and persist the fixed concept set in one write.
	// This is the transition to PROCESSING.
	concepts := make([]domain.Concept, 0, len(drafts))
	for _, d := range drafts {
		c, err := domain.NewConcept(d.Name, d.Description, d.Materials, d.ImagePrompt)
		if err != nil {
			return t.fail(ctx, fmt.Errorf("invalid concept draft %q: %w", d.Name, err))
		}
		concepts = append(concepts, *c)
	}
	err = t.jobs.UpdateJob(ctx, t.payload.JobID, func(j *domain.Job) error {
		return j.SetConcepts(concepts)
	})
	if err != nil {
		return t.fail(ctx, fmt.Errorf("persisting concept drafts failed: %w", err))
	}

	// 4. One image task per concept; each writes only its own element.
	providerName := string(t.payload.Tenant.Provider())
	var wg sync.WaitGroup
	for i := range concepts {
		wg.Add(1)
		go t.runImageTask(ctx, &wg, provider, providerName, concepts[i])
	}
	wg.Wait()

	// 5. Orchestration is done once every image task has reported.
	err = t.jobs.UpdateJob(ctx, t.payload.JobID, func(j *domain.Job) error {
		return j.TransitionTo(domain.JobStatusCompleted)
	})
	if err != nil {
		// The concepts and image outcomes are already persisted; do not
		// clobber whatever status the job ended up in.
		t.status = TaskStatusFailed
		t.logger.ErrorContext(ctx, "failed to mark job completed", "error", err)
		return fmt.Errorf("marking job completed: %w", err)
	}

	t.metrics.RecordJobFinished(ctx, string(domain.JobStatusCompleted))
	t.status = TaskStatusCompleted
	t.logger.InfoContext(ctx, "concept generation task completed", "concept_count", len(concepts))
	return nil
}

// runImageTask fetches or generates the image for one concept and records the
// outcome on that concept alone. Errors and panics become per-concept errors.
func (t *ConceptGenerationTask) runImageTask(
	ctx context.Context,
	wg *sync.WaitGroup,
	provider imagery.Provider,
	providerName string,
	concept domain.Concept,
) {
	defer wg.Done()

	logger := t.logger.With("concept_id", concept.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "image task panicked", "panic", r)
			t.metrics.RecordImageTask(ctx, providerName, observability.OutcomeError)
			t.recordImageOutcome(ctx, logger, concept.ID, "", fmt.Sprintf("image task panicked: %v", r))
		}
	}()

	result, err := provider.FetchOrGenerate(ctx, concept.ImagePrompt)

	var errMessage string
	switch {
	case err != nil:
		errMessage = err.Error()
		logger.WarnContext(ctx, "image task failed", "error", err)
		t.metrics.RecordImageTask(ctx, providerName, observability.OutcomeError)
	case result.URL == "":
		logger.InfoContext(ctx, "image task found no match")
		t.metrics.RecordImageTask(ctx, providerName, observability.OutcomeMiss)
	default:
		t.metrics.RecordImageTask(ctx, providerName, observability.OutcomeSuccess)
	}

	t.recordImageOutcome(ctx, logger, concept.ID, result.URL, errMessage)
}

// recordImageOutcome commits one concept's terminal image state. The store's
// compare-and-retry update keeps concurrent sibling writes intact.
func (t *ConceptGenerationTask) recordImageOutcome(
	ctx context.Context,
	logger *slog.Logger,
	conceptID uuid.UUID,
	imageURL string,
	errMessage string,
) {
	err := t.jobs.UpdateJob(ctx, t.payload.JobID, func(j *domain.Job) error {
		return j.ApplyImageOutcome(conceptID, imageURL, errMessage)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to record image outcome", "error", err)
	}
}

// fail moves the job to FAILED with a descriptive message and settles the
// task. The status write is best effort; a terminal job is never overwritten.
func (t *ConceptGenerationTask) fail(ctx context.Context, cause error) error {
	t.status = TaskStatusFailed
	t.logger.ErrorContext(ctx, "concept generation task failed", "error", cause)

	err := t.jobs.UpdateJob(ctx, t.payload.JobID, func(j *domain.Job) error {
		return j.MarkFailed(cause.Error())
	})
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to mark job failed", "error", err)
	} else {
		t.metrics.RecordJobFinished(ctx, string(domain.JobStatusFailed))
	}
	return cause
}
