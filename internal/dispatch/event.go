package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/curiolab/curio-api/internal/events"
)

// EventDispatcher hands jobs to the in-process worker through the event
// emitter. The emitter is synchronous, so a nil return means the task was
// built and queued; any handler failure surfaces here as a dispatch failure.
type EventDispatcher struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ Dispatcher = (*EventDispatcher)(nil)

// NewEventDispatcher creates a dispatcher that publishes to the given emitter.
func NewEventDispatcher(emitter events.EventEmitter, logger *slog.Logger) *EventDispatcher {
	return &EventDispatcher{
		emitter: emitter,
		logger:  logger.With("component", "event_dispatcher"),
	}
}

// Dispatch publishes a concept-generation request event for the job.
func (d *EventDispatcher) Dispatch(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	event, err := events.NewTaskRequestEvent(events.TaskTypeConceptGeneration, req)
	if err != nil {
		return fmt.Errorf("%w: creating event: %v", ErrDispatchFailed, err)
	}

	if err := d.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	d.logger.DebugContext(ctx, "job dispatched via event",
		"job_id", req.JobID,
		"event_id", event.ID)
	return nil
}
