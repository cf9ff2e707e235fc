// Package redisjobs implements the job store on Redis. Jobs are stored as
// JSON values under one key per job; updates run inside WATCH/MULTI so any
// concurrent write aborts the transaction and triggers a re-read and retry.
// Committed updates publish the new snapshot on a per-job channel that
// Subscribe consumes.
package redisjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/curiolab/curio-api/internal/store"
)

// casRetryLimit bounds the WATCH/MULTI retry loop.
const casRetryLimit = 32

// RedisJobStore implements store.JobStore on go-redis.
type RedisJobStore struct {
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Ensure RedisJobStore implements store.JobStore interface
var _ store.JobStore = (*RedisJobStore)(nil)

// NewRedisJobStore creates a Redis implementation of the JobStore interface
// from a Redis URL.
func NewRedisJobStore(redisURL string, logger *slog.Logger) (*RedisJobStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisJobStore{
		client: redis.NewClient(opts),
		logger: logger.With(slog.String("component", "redis_job_store")),
	}, nil
}

// Ping checks connectivity.
func (s *RedisJobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func jobKey(id uuid.UUID) string {
	return "curio:job:" + id.String()
}

func jobChannel(id uuid.UUID) string {
	return "curio:job-updates:" + id.String()
}

// CreateJob persists a new job document.
func (s *RedisJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	doc, err := json.Marshal(job)
	if err != nil {
		return store.NewStoreError("create", "failed to encode job document", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.ID), doc, 0).Result()
	if err != nil {
		return store.NewStoreError("create", "failed to insert job", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrJobExists, job.ID)
	}
	return nil
}

// GetJob returns the current job document.
func (s *RedisJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	doc, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, store.NewStoreError("get", "failed to load job", err)
	}

	var job domain.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, store.NewStoreError("get", "failed to decode job document", err)
	}
	return &job, nil
}

// UpdateJob applies mutate inside a WATCH/MULTI transaction. Any concurrent
// write to the key between the read and the commit aborts the transaction,
// and the whole cycle retries with a fresh read. The committed snapshot is
// published to the job's update channel.
func (s *RedisJobStore) UpdateJob(ctx context.Context, id uuid.UUID, mutate func(*domain.Job) error) error {
	key := jobKey(id)

	txn := func(tx *redis.Tx) error {
		doc, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
		}
		if err != nil {
			return store.NewStoreError("update", "failed to load job", err)
		}

		var job domain.Job
		if err := json.Unmarshal(doc, &job); err != nil {
			return store.NewStoreError("update", "failed to decode job document", err)
		}

		if err := mutate(&job); err != nil {
			return err
		}
		if err := job.Validate(); err != nil {
			return store.NewStoreError("update", "mutation produced an invalid job", err)
		}

		updated, err := json.Marshal(&job)
		if err != nil {
			return store.NewStoreError("update", "failed to encode job document", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.Publish(ctx, jobChannel(id), updated)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < casRetryLimit; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.DebugContext(ctx, "job update lost watch race, retrying",
				"job_id", id, "attempt", attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s after %d attempts", store.ErrVersionConflict, id, casRetryLimit)
}

// Subscribe delivers the current snapshot and then every published update
// until cancel is called or ctx is done.
func (s *RedisJobStore) Subscribe(ctx context.Context, id uuid.UUID, fn func(domain.Job)) (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, store.ErrSubscriptionClosed
	}
	s.mu.Unlock()

	// Subscribe before the initial read so no update between the two is lost.
	pubsub := s.client.Subscribe(ctx, jobChannel(id))

	initial, err := s.GetJob(ctx, id)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(*initial)
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var job domain.Job
				if err := json.Unmarshal([]byte(msg.Payload), &job); err != nil {
					s.logger.WarnContext(subCtx, "ignoring malformed job update message",
						"error", err, "job_id", id)
					continue
				}
				fn(job)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
			cancelCtx()
			<-done
		})
	}
	return cancel, nil
}

// Close shuts down the client. Active subscriptions end when their pub/sub
// channels close.
func (s *RedisJobStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.client.Close()
}
