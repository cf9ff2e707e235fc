package store

import (
	"context"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/google/uuid"
)

// JobStore is the contract every job-document backend must satisfy.
//
// All mutation after creation goes through UpdateJob, which implements
// optimistic compare-and-retry: the store loads the current document and its
// version, applies mutate to a private copy, and commits only if the version
// is unchanged, retrying the whole cycle on conflict. Concurrent updates to
// disjoint concepts of the same job therefore never lose writes.
//
// Version: 1.0
type JobStore interface {
	// CreateJob persists a new job document. Fails with ErrJobExists if the
	// ID is already taken.
	CreateJob(ctx context.Context, job *domain.Job) error

	// GetJob returns a snapshot of the job document. The returned value is a
	// private copy; callers may mutate it freely.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// UpdateJob applies mutate to the current document under the
	// compare-and-retry discipline described above. An error returned by
	// mutate aborts the update and is returned verbatim.
	UpdateJob(ctx context.Context, id uuid.UUID, mutate func(*domain.Job) error) error

	// Subscribe registers fn for job snapshots: one delivery with the current
	// state, then one per committed update, until cancel is called or ctx is
	// done. fn is invoked from a single goroutine per subscription and must
	// not block indefinitely.
	Subscribe(ctx context.Context, id uuid.UUID, fn func(domain.Job)) (cancel func(), err error)
}
