package task

import (
	"log/slog"

	"github.com/curiolab/curio-api/internal/generation"
	"github.com/curiolab/curio-api/internal/observability"
	"github.com/curiolab/curio-api/internal/store"
)

// ConceptGenerationTaskFactory creates ConceptGenerationTask instances with
// the shared dependencies wired in once.
type ConceptGenerationTaskFactory struct {
	jobs      store.JobStore
	generator generation.ConceptGenerator
	providers ImageProviders
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewConceptGenerationTaskFactory creates a new factory for ConceptGenerationTasks
func NewConceptGenerationTaskFactory(
	jobs store.JobStore,
	generator generation.ConceptGenerator,
	providers ImageProviders,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *ConceptGenerationTaskFactory {
	return &ConceptGenerationTaskFactory{
		jobs:      jobs,
		generator: generator,
		providers: providers,
		metrics:   metrics,
		logger:    logger.With("component", "concept_generation_task_factory"),
	}
}

// CreateTask creates a new ConceptGenerationTask for the given payload.
func (f *ConceptGenerationTaskFactory) CreateTask(payload ConceptGenerationPayload) (Task, error) {
	t, err := NewConceptGenerationTask(
		payload,
		f.jobs,
		f.generator,
		f.providers,
		f.metrics,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
