package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/domain"
)

// Common dispatch errors
var (
	// ErrDispatchFailed indicates the job could not be handed to a worker.
	// The caller is expected to fail the job before surfacing this.
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrInvalidRequest indicates the dispatch request is missing required
	// fields.
	ErrInvalidRequest = errors.New("invalid dispatch request")
)

// Request carries everything a worker needs to run one job. The JSON field
// names match the internal worker endpoint's body and the task payload.
type Request struct {
	JobID       uuid.UUID           `json:"jobId"`
	Idea        string              `json:"idea"`
	BaseConcept *domain.BaseConcept `json:"baseConcept,omitempty"`
	Tenant      domain.TenantConfig `json:"tenant,omitempty"`
}

// Validate checks the request for required fields.
func (r Request) Validate() error {
	if r.JobID == uuid.Nil {
		return errors.Join(ErrInvalidRequest, errors.New("job ID is empty"))
	}
	if r.Idea == "" {
		return errors.Join(ErrInvalidRequest, errors.New("idea is empty"))
	}
	return nil
}

// Dispatcher hands an accepted job to a worker. Dispatch returning nil means
// a worker has accepted ownership of the job; an error means nobody will ever
// process it and the caller must fail the job.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}
