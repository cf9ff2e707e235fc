package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the orchestration state of a concept-generation job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Common validation errors for Job
var (
	ErrEmptyJobID          = errors.New("job ID cannot be empty")
	ErrInvalidJobStatus    = errors.New("invalid job status")
	ErrTerminalJobStatus   = errors.New("job is already in a terminal state")
	ErrBackwardsJobStatus  = errors.New("job status cannot move backwards")
	ErrConceptsAlreadySet  = errors.New("job concepts are fixed once persisted")
	ErrUnknownConceptID    = errors.New("concept ID does not belong to this job")
)

// Job is one end-to-end concept-generation request and its current state.
// It is created PENDING with no concepts, owned by a single worker invocation
// after dispatch, and read-only to everything else.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Status    JobStatus `json:"status"`
	Concepts  []Concept `json:"concepts"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewJob creates a Job in the PENDING state with an empty concept list.
func NewJob() *Job {
	return &Job{
		ID:        uuid.New(),
		Status:    JobStatusPending,
		Concepts:  []Concept{},
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the Job's fields for internal consistency.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}
	if j.Error != "" && j.Status != JobStatusFailed {
		return fmt.Errorf("%w: error message set on non-failed job", ErrInvalidJobStatus)
	}
	for i := range j.Concepts {
		if err := j.Concepts[i].Validate(); err != nil {
			return fmt.Errorf("concept %d: %w", i, err)
		}
	}
	return nil
}

// IsTerminal reports whether the job has reached COMPLETED or FAILED.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// TransitionTo advances the job status. Transitions are monotonic:
// PENDING → PROCESSING → {COMPLETED|FAILED}; a terminal status never changes.
func (j *Job) TransitionTo(status JobStatus) error {
	if !isValidJobStatus(status) {
		return ErrInvalidJobStatus
	}
	if j.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalJobStatus, j.Status)
	}
	if status == JobStatusPending {
		return ErrBackwardsJobStatus
	}
	if status == JobStatusCompleted && j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: cannot complete from %s", ErrBackwardsJobStatus, j.Status)
	}
	j.Status = status
	return nil
}

// MarkFailed moves the job to FAILED and records the message. Failing an
// already-terminal job is rejected so a late worker cannot clobber a result.
func (j *Job) MarkFailed(message string) error {
	if err := j.TransitionTo(JobStatusFailed); err != nil {
		return err
	}
	j.Error = message
	return nil
}

// SetConcepts persists the initial draft set and moves the job to PROCESSING.
// The concept list is fixed from this point on.
func (j *Job) SetConcepts(concepts []Concept) error {
	if len(j.Concepts) > 0 {
		return ErrConceptsAlreadySet
	}
	if err := j.TransitionTo(JobStatusProcessing); err != nil {
		return err
	}
	j.Concepts = concepts
	return nil
}

// ApplyImageOutcome records the terminal result of one image task against the
// concept that owns it, and nothing else. The write is idempotent: once the
// concept has stopped generating, later applications are ignored.
func (j *Job) ApplyImageOutcome(conceptID uuid.UUID, imageURL string, errMessage string) error {
	for i := range j.Concepts {
		if j.Concepts[i].ID != conceptID {
			continue
		}
		if !j.Concepts[i].IsGeneratingImage {
			return nil
		}
		j.Concepts[i].ImageURL = imageURL
		j.Concepts[i].Error = errMessage
		j.Concepts[i].IsGeneratingImage = false
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownConceptID, conceptID)
}

// Clone returns a deep copy of the job. Stores hand out clones so that
// concurrent readers never share concept slices with writers.
func (j *Job) Clone() *Job {
	dup := *j
	dup.Concepts = make([]Concept, len(j.Concepts))
	copy(dup.Concepts, j.Concepts)
	for i := range dup.Concepts {
		dup.Concepts[i].Materials = append([]string(nil), j.Concepts[i].Materials...)
	}
	return &dup
}

// IsResolved reports whether every concept has finished its image work, i.e.
// no concept is still generating. A concept with a null image and no error is
// still resolved: a stock search with no hits is a valid outcome. The server's
// COMPLETED status only covers orchestration; observers use this predicate to
// decide when a job is fully settled.
func IsResolved(j *Job) bool {
	for i := range j.Concepts {
		if j.Concepts[i].IsGeneratingImage {
			return false
		}
	}
	return true
}

func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}
