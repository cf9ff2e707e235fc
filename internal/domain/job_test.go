package domain_test

import (
	"testing"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessingJob(t *testing.T, n int) *domain.Job {
	t.Helper()

	job := domain.NewJob()
	concepts := make([]domain.Concept, 0, n)
	for i := 0; i < n; i++ {
		c, err := domain.NewConcept("name", "description", []string{"oak"}, "a photorealistic rendering")
		require.NoError(t, err)
		concepts = append(concepts, *c)
	}
	require.NoError(t, job.SetConcepts(concepts))
	return job
}

func TestNewJob(t *testing.T) {
	t.Parallel()

	job := domain.NewJob()

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.NotNil(t, job.Concepts)
	assert.Empty(t, job.Concepts)
	assert.Empty(t, job.Error)
	assert.False(t, job.CreatedAt.IsZero())
	assert.NoError(t, job.Validate())
}

func TestJob_TransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    domain.JobStatus
		to      domain.JobStatus
		wantErr error
	}{
		{name: "pending to processing", from: domain.JobStatusPending, to: domain.JobStatusProcessing},
		{name: "pending to failed", from: domain.JobStatusPending, to: domain.JobStatusFailed},
		{name: "processing to completed", from: domain.JobStatusProcessing, to: domain.JobStatusCompleted},
		{name: "processing to failed", from: domain.JobStatusProcessing, to: domain.JobStatusFailed},
		{
			name:    "pending cannot complete directly",
			from:    domain.JobStatusPending,
			to:      domain.JobStatusCompleted,
			wantErr: domain.ErrBackwardsJobStatus,
		},
		{
			name:    "no return to pending",
			from:    domain.JobStatusProcessing,
			to:      domain.JobStatusPending,
			wantErr: domain.ErrBackwardsJobStatus,
		},
		{
			name:    "completed is terminal",
			from:    domain.JobStatusCompleted,
			to:      domain.JobStatusFailed,
			wantErr: domain.ErrTerminalJobStatus,
		},
		{
			name:    "failed is terminal",
			from:    domain.JobStatusFailed,
			to:      domain.JobStatusProcessing,
			wantErr: domain.ErrTerminalJobStatus,
		},
		{
			name:    "unknown status rejected",
			from:    domain.JobStatusPending,
			to:      domain.JobStatus("EXPLODED"),
			wantErr: domain.ErrInvalidJobStatus,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := domain.NewJob()
			job.Status = tt.from

			err := job.TransitionTo(tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, job.Status, "failed transition must not change status")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, job.Status)
		})
	}
}

func TestJob_MarkFailed(t *testing.T) {
	t.Parallel()

	t.Run("records message", func(t *testing.T) {
		t.Parallel()

		job := domain.NewJob()
		require.NoError(t, job.MarkFailed("generation exploded"))

		assert.Equal(t, domain.JobStatusFailed, job.Status)
		assert.Equal(t, "generation exploded", job.Error)
	})

	t.Run("cannot clobber a completed job", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 1)
		require.NoError(t, job.TransitionTo(domain.JobStatusCompleted))

		err := job.MarkFailed("late failure")
		assert.ErrorIs(t, err, domain.ErrTerminalJobStatus)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.Empty(t, job.Error)
	})
}

func TestJob_SetConcepts(t *testing.T) {
	t.Parallel()

	t.Run("persists drafts and moves to processing", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 3)

		assert.Equal(t, domain.JobStatusProcessing, job.Status)
		assert.Len(t, job.Concepts, 3)
		for _, c := range job.Concepts {
			assert.True(t, c.IsGeneratingImage)
			assert.Empty(t, c.ImageURL)
		}
	})

	t.Run("concept list is fixed once set", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 3)
		err := job.SetConcepts(nil)
		assert.ErrorIs(t, err, domain.ErrConceptsAlreadySet)
		assert.Len(t, job.Concepts, 3)
	})
}

func TestJob_ApplyImageOutcome(t *testing.T) {
	t.Parallel()

	t.Run("writes only the owning concept", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 3)
		target := job.Concepts[1].ID

		require.NoError(t, job.ApplyImageOutcome(target, "https://img.example/1.jpg", ""))

		assert.True(t, job.Concepts[0].IsGeneratingImage)
		assert.True(t, job.Concepts[2].IsGeneratingImage)
		assert.False(t, job.Concepts[1].IsGeneratingImage)
		assert.Equal(t, "https://img.example/1.jpg", job.Concepts[1].ImageURL)
	})

	t.Run("idempotent after the first write", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 1)
		id := job.Concepts[0].ID

		require.NoError(t, job.ApplyImageOutcome(id, "https://img.example/first.jpg", ""))
		require.NoError(t, job.ApplyImageOutcome(id, "https://img.example/second.jpg", "late error"))

		assert.Equal(t, "https://img.example/first.jpg", job.Concepts[0].ImageURL)
		assert.Empty(t, job.Concepts[0].Error)
	})

	t.Run("failure degrades to null image with error", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 1)
		id := job.Concepts[0].ID

		require.NoError(t, job.ApplyImageOutcome(id, "", "provider timed out"))

		assert.Empty(t, job.Concepts[0].ImageURL)
		assert.Equal(t, "provider timed out", job.Concepts[0].Error)
		assert.False(t, job.Concepts[0].IsGeneratingImage)
	})

	t.Run("unknown concept rejected", func(t *testing.T) {
		t.Parallel()

		job := newProcessingJob(t, 1)
		err := job.ApplyImageOutcome(uuid.New(), "https://img.example/x.jpg", "")
		assert.ErrorIs(t, err, domain.ErrUnknownConceptID)
	})
}

func TestJob_Clone(t *testing.T) {
	t.Parallel()

	job := newProcessingJob(t, 2)
	dup := job.Clone()

	dup.Concepts[0].ImageURL = "https://img.example/mutated.jpg"
	dup.Concepts[0].Materials[0] = "mutated"

	assert.Empty(t, job.Concepts[0].ImageURL)
	assert.Equal(t, "oak", job.Concepts[0].Materials[0])
}

func TestIsResolved(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*domain.Job)
		resolve bool
	}{
		{
			name:    "all concepts still generating",
			mutate:  func(j *domain.Job) {},
			resolve: false,
		},
		{
			name: "one concept still generating",
			mutate: func(j *domain.Job) {
				_ = j.ApplyImageOutcome(j.Concepts[0].ID, "https://img.example/0.jpg", "")
				_ = j.ApplyImageOutcome(j.Concepts[1].ID, "", "boom")
			},
			resolve: false,
		},
		{
			name: "all settled including null image with no error",
			mutate: func(j *domain.Job) {
				_ = j.ApplyImageOutcome(j.Concepts[0].ID, "https://img.example/0.jpg", "")
				_ = j.ApplyImageOutcome(j.Concepts[1].ID, "", "")
				_ = j.ApplyImageOutcome(j.Concepts[2].ID, "", "boom")
			},
			resolve: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := newProcessingJob(t, 3)
			tt.mutate(job)
			assert.Equal(t, tt.resolve, domain.IsResolved(job))
		})
	}

	t.Run("empty concept list resolves", func(t *testing.T) {
		t.Parallel()
		assert.True(t, domain.IsResolved(domain.NewJob()))
	})
}
