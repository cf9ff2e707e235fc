package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/curiolab/curio-api/internal/store"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolationCode = "23505"

// jobUpdatesChannel is the NOTIFY channel carrying job IDs of committed
// updates.
const jobUpdatesChannel = "curio_job_updates"

// casRetryLimit bounds the compare-and-retry loop. Disjoint-concept updates
// converge well within this; hitting the limit means something is rewriting
// the whole document in a tight loop.
const casRetryLimit = 32

// PostgresJobStore implements store.JobStore on a pgx connection pool.
type PostgresJobStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu       sync.Mutex
	subs     map[uuid.UUID]map[*pgSubscriber]struct{}
	listener *listenLoop
	closed   bool
}

type pgSubscriber struct {
	ch     chan struct{} // notification ticks, coalesced
	cancel context.CancelFunc
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// NewPostgresJobStore creates a PostgreSQL implementation of the JobStore
// interface. The pool should be initialized and managed by the caller. If
// logger is nil, a default logger will be used.
func NewPostgresJobStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresJobStore {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		pool:   pool,
		logger: logger.With(slog.String("component", "postgres_job_store")),
		subs:   make(map[uuid.UUID]map[*pgSubscriber]struct{}),
	}
}

// CreateJob persists a new job document.
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	doc, err := json.Marshal(job)
	if err != nil {
		return store.NewStoreError("create", "failed to encode job document", err)
	}

	query := `
		INSERT INTO jobs (id, doc, version, created_at)
		VALUES ($1, $2, 1, $3)
	`
	_, err = s.pool.Exec(ctx, query, job.ID, doc, job.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: %s", store.ErrJobExists, job.ID)
		}
		return store.NewStoreError("create", "failed to insert job", err)
	}
	return nil
}

// GetJob returns the current job document.
func (s *PostgresJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, _, err := s.loadJob(ctx, id)
	return job, err
}

func (s *PostgresJobStore) loadJob(ctx context.Context, id uuid.UUID) (*domain.Job, int64, error) {
	var doc []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM jobs WHERE id = $1`, id,
	).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, 0, store.NewStoreError("get", "failed to load job", err)
	}

	var job domain.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, 0, store.NewStoreError("get", "failed to decode job document", err)
	}
	return &job, version, nil
}

// UpdateJob applies mutate under optimistic concurrency: the document is
// re-read on every attempt and the write commits only if the version column
// is unchanged. The committed update notifies subscribers via pg_notify.
func (s *PostgresJobStore) UpdateJob(ctx context.Context, id uuid.UUID, mutate func(*domain.Job) error) error {
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		job, version, err := s.loadJob(ctx, id)
		if err != nil {
			return err
		}

		if err := mutate(job); err != nil {
			return err
		}
		if err := job.Validate(); err != nil {
			return store.NewStoreError("update", "mutation produced an invalid job", err)
		}

		doc, err := json.Marshal(job)
		if err != nil {
			return store.NewStoreError("update", "failed to encode job document", err)
		}

		query := `
			UPDATE jobs
			SET doc = $1, version = version + 1
			WHERE id = $2 AND version = $3
		`
		tag, err := s.pool.Exec(ctx, query, doc, id, version)
		if err != nil {
			return store.NewStoreError("update", "failed to commit job update", err)
		}
		if tag.RowsAffected() == 1 {
			// Notify in a separate statement; a lost notification only
			// delays subscribers until the next one.
			if _, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, jobUpdatesChannel, id.String()); err != nil {
				s.logger.WarnContext(ctx, "failed to notify job update",
					"error", err, "job_id", id)
			}
			return nil
		}

		s.logger.DebugContext(ctx, "job update lost version race, retrying",
			"job_id", id, "attempt", attempt+1)
	}
	return fmt.Errorf("%w: %s after %d attempts", store.ErrVersionConflict, id, casRetryLimit)
}

// Subscribe delivers the current snapshot and then one snapshot per
// committed update, driven by LISTEN notifications on the shared channel.
func (s *PostgresJobStore) Subscribe(ctx context.Context, id uuid.UUID, fn func(domain.Job)) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, store.ErrSubscriptionClosed
	}
	if err := s.ensureListenerLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	sub := &pgSubscriber{
		ch:     make(chan struct{}, 1),
		cancel: cancelCtx,
	}
	if s.subs[id] == nil {
		s.subs[id] = make(map[*pgSubscriber]struct{})
	}
	s.subs[id][sub] = struct{}{}
	s.mu.Unlock()

	// Verify the job exists before handing out a subscription.
	initial, _, err := s.loadJob(ctx, id)
	if err != nil {
		s.removeSubscriber(id, sub)
		cancelCtx()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(*initial)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-sub.ch:
				if !ok {
					return
				}
				job, _, err := s.loadJob(subCtx, id)
				if err != nil {
					s.logger.WarnContext(subCtx, "failed to reload job for subscriber",
						"error", err, "job_id", id)
					continue
				}
				fn(*job)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.removeSubscriber(id, sub)
			cancelCtx()
			<-done
		})
	}
	return cancel, nil
}

func (s *PostgresJobStore) removeSubscriber(id uuid.UUID, sub *pgSubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subs, ok := s.subs[id]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.subs, id)
		}
	}
}

// notifySubscribers wakes every subscriber of the job. Ticks are coalesced:
// a subscriber that has not drained its pending tick re-reads once for any
// number of commits.
func (s *PostgresJobStore) notifySubscribers(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[id] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// Close stops the listener loop and tears down all subscriptions.
func (s *PostgresJobStore) Close() {
	s.mu.Lock()
	s.closed = true
	listener := s.listener
	s.listener = nil
	var all []*pgSubscriber
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
	if listener != nil {
		listener.stop()
	}
}
