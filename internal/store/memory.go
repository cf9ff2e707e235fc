package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/google/uuid"
)

// casRetryLimit bounds compare-and-retry cycles; with one writer pool per job
// the fan-out width is the worst-case conflict depth, so a small budget holds.
const casRetryLimit = 32

type versionedJob struct {
	job     *domain.Job
	version uint64
}

type memorySubscriber struct {
	ch     chan domain.Job
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSent uint64
}

// MemoryJobStore is an in-process JobStore used by tests and local
// development. Documents are versioned; UpdateJob commits only against an
// unchanged version and retries on conflict, so it exercises the same
// optimistic discipline as the durable backends.
type MemoryJobStore struct {
	mu     sync.RWMutex
	jobs   map[uuid.UUID]versionedJob
	subs   map[uuid.UUID]map[*memorySubscriber]struct{}
	closed bool
	logger *slog.Logger
}

var _ JobStore = (*MemoryJobStore)(nil)

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore(logger *slog.Logger) *MemoryJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryJobStore{
		jobs:   make(map[uuid.UUID]versionedJob),
		subs:   make(map[uuid.UUID]map[*memorySubscriber]struct{}),
		logger: logger.With("component", "memory_job_store"),
	}
}

// CreateJob persists a new job document.
func (s *MemoryJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return NewStoreError("create", "invalid job", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, job.ID)
	}
	s.jobs[job.ID] = versionedJob{job: job.Clone(), version: 1}
	return nil
}

// GetJob returns a snapshot of the job document.
func (s *MemoryJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return entry.job.Clone(), nil
}

// UpdateJob applies mutate under compare-and-retry. Each cycle reads a
// snapshot and its version outside any critical section held during mutate,
// then commits only if no other writer got there first.
func (s *MemoryJobStore) UpdateJob(ctx context.Context, id uuid.UUID, mutate func(*domain.Job) error) error {
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.RLock()
		entry, ok := s.jobs[id]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}

		candidate := entry.job.Clone()
		if err := mutate(candidate); err != nil {
			return err
		}
		if err := candidate.Validate(); err != nil {
			return NewStoreError("update", "mutation produced invalid job", err)
		}

		s.mu.Lock()
		current, ok := s.jobs[id]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		if current.version != entry.version {
			s.mu.Unlock()
			continue // lost the race, retry against the fresh document
		}
		committed := versionedJob{job: candidate, version: entry.version + 1}
		s.jobs[id] = committed
		subs := make([]*memorySubscriber, 0, len(s.subs[id]))
		for sub := range s.subs[id] {
			subs = append(subs, sub)
		}
		s.mu.Unlock()

		snapshot := *candidate.Clone()
		for _, sub := range subs {
			sub.deliver(snapshot, committed.version)
		}
		return nil
	}
	return fmt.Errorf("%w: update of job %s exhausted %d attempts", ErrVersionConflict, id, casRetryLimit)
}

// Subscribe registers fn for snapshots of the given job.
func (s *MemoryJobStore) Subscribe(ctx context.Context, id uuid.UUID, fn func(domain.Job)) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSubscriptionClosed
	}
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	initial := *entry.job.Clone()

	subCtx, cancelCtx := context.WithCancel(ctx)
	sub := &memorySubscriber{
		// Buffer sized for a full fan-out burst plus the terminal write.
		ch:     make(chan domain.Job, 16),
		cancel: cancelCtx,
	}
	if s.subs[id] == nil {
		s.subs[id] = make(map[*memorySubscriber]struct{})
	}
	s.subs[id][sub] = struct{}{}
	s.mu.Unlock()

	sub.deliver(initial, entry.version)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case snapshot, ok := <-sub.ch:
				if !ok {
					return
				}
				fn(snapshot)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[id], sub)
			s.mu.Unlock()
			cancelCtx()
			<-done
		})
	}
	return cancel, nil
}

// Close tears down all subscriptions. Pending deliveries are dropped.
func (s *MemoryJobStore) Close() {
	s.mu.Lock()
	s.closed = true
	var all []*memorySubscriber
	for id, subs := range s.subs {
		for sub := range subs {
			all = append(all, sub)
		}
		delete(s.subs, id)
	}
	s.mu.Unlock()

	for _, sub := range all {
		sub.cancel()
	}
}

// deliver enqueues a snapshot without ever blocking a writer. Snapshots are
// delivered in version order: a commit that lost the race to a newer one is
// dropped, so the stream is monotonic. If the subscriber's buffer is full the
// oldest snapshot is dropped; observers only care about the latest state.
func (sub *memorySubscriber) deliver(snapshot domain.Job, version uint64) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if version <= sub.lastSent {
		return
	}
	sub.lastSent = version

	for {
		select {
		case sub.ch <- snapshot:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}
