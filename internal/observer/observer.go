// Package observer implements the client-side watch helper: subscribe to a
// job's snapshots and forward its concept list until the job is settled. The
// observer never mutates jobs; it only decides, locally, when to stop
// listening.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/curiolab/curio-api/internal/domain"
)

// ErrNilSubscriber indicates the observer was built without a store.
var ErrNilSubscriber = errors.New("subscriber cannot be nil")

// Subscriber is the slice of the job store the observer needs.
type Subscriber interface {
	Subscribe(ctx context.Context, id uuid.UUID, fn func(domain.Job)) (cancel func(), err error)
}

// Watch is one active observation of a job.
type Watch struct {
	done     chan struct{}
	ready    chan struct{} // closed once the subscription's cancel is wired
	stopOnce sync.Once
	cancel   func()
}

// Done is closed when the watch has stopped, either because the job settled
// or because Stop was called.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Stop ends the watch early. Safe to call multiple times and after the watch
// has already settled.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() {
		<-w.ready
		w.cancel()
		close(w.done)
	})
}

// Observer follows jobs through their image-generation phase.
type Observer struct {
	subscriber Subscriber
	logger     *slog.Logger
}

// New creates an Observer reading from the given subscriber.
func New(subscriber Subscriber, logger *slog.Logger) (*Observer, error) {
	if subscriber == nil {
		return nil, ErrNilSubscriber
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		subscriber: subscriber,
		logger:     logger.With("component", "job_observer"),
	}, nil
}

// WatchJob subscribes to the job and calls onUpdate with the concept list of
// every snapshot, starting with the current state. The watch stops on its own
// once the job is settled: FAILED, or COMPLETED with no concept still
// generating. A COMPLETED job with image tasks still in flight keeps the
// watch open until the last outcome lands.
func (o *Observer) WatchJob(
	ctx context.Context,
	jobID uuid.UUID,
	onUpdate func([]domain.Concept),
) (*Watch, error) {
	if onUpdate == nil {
		return nil, fmt.Errorf("onUpdate callback cannot be nil")
	}

	w := &Watch{done: make(chan struct{}), ready: make(chan struct{})}

	// The first snapshot can arrive before Subscribe returns its cancel
	// function; Stop waits on ready so it never runs with a nil cancel.
	cancel, err := o.subscriber.Subscribe(ctx, jobID, func(job domain.Job) {
		onUpdate(job.Concepts)

		if settled(&job) {
			o.logger.DebugContext(ctx, "job settled, stopping watch",
				"job_id", jobID,
				"status", job.Status)
			// Cancelling a subscription joins its delivery goroutine, and
			// this callback runs on it. Stop from the outside.
			go w.Stop()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to job %s: %w", jobID, err)
	}
	w.cancel = cancel
	close(w.ready)

	return w, nil
}

// settled reports whether there is nothing left to observe on the job.
func settled(j *domain.Job) bool {
	if j.Status == domain.JobStatusFailed {
		return true
	}
	return j.Status == domain.JobStatusCompleted && domain.IsResolved(j)
}
