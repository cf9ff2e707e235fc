package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// listenLoop holds one dedicated connection in LISTEN mode and fans incoming
// job IDs out to the store's subscribers. The connection is re-acquired with
// backoff after any failure; subscribers simply miss ticks in the gap and
// catch up on the next commit.
type listenLoop struct {
	pool   *pgxpool.Pool
	store  *PostgresJobStore
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// ensureListenerLocked starts the LISTEN loop on first use. Callers must
// hold s.mu.
func (s *PostgresJobStore) ensureListenerLocked() error {
	if s.listener != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &listenLoop{
		pool:   s.pool,
		store:  s,
		logger: s.logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.listener = l
	go l.run()
	return nil
}

func (l *listenLoop) stop() {
	l.cancel()
	<-l.done
}

func (l *listenLoop) run() {
	defer close(l.done)

	const retryDelay = time.Second
	for {
		if l.ctx.Err() != nil {
			return
		}
		if err := l.listenOnce(); err != nil && l.ctx.Err() == nil {
			l.logger.Warn("job update listener lost its connection, retrying",
				"error", err)
			select {
			case <-l.ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
}

func (l *listenLoop) listenOnce() error {
	conn, err := l.pool.Acquire(l.ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(l.ctx, `LISTEN `+jobUpdatesChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(l.ctx)
		if err != nil {
			return err
		}
		jobID, err := uuid.Parse(notification.Payload)
		if err != nil {
			l.logger.Warn("ignoring malformed job update notification",
				"payload", notification.Payload)
			continue
		}
		l.store.notifySubscribers(jobID)
	}
}
