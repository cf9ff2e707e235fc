package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTask is a minimal Task for exercising the runner.
type mockTask struct {
	id      uuid.UUID
	execErr error
	block   chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newMockTask(execErr error) *mockTask {
	return &mockTask{
		id:      uuid.New(),
		execErr: execErr,
		done:    make(chan struct{}),
	}
}

func (m *mockTask) ID() uuid.UUID      { return m.id }
func (m *mockTask) Type() string       { return "mock" }
func (m *mockTask) Payload() []byte    { return nil }
func (m *mockTask) Status() TaskStatus { return TaskStatusPending }

func (m *mockTask) Execute(ctx context.Context) error {
	if m.block != nil {
		<-m.block
	}
	m.once.Do(func() { close(m.done) })
	return m.execErr
}

func waitDone(t *testing.T, m *mockTask) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed in time")
	}
}

func TestTaskRunner_ExecutesSubmittedTasks(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 4}, slog.Default())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	first := newMockTask(nil)
	second := newMockTask(nil)
	require.NoError(t, runner.Submit(context.Background(), first))
	require.NoError(t, runner.Submit(context.Background(), second))

	waitDone(t, first)
	waitDone(t, second)
}

func TestTaskRunner_QueueFull(t *testing.T) {
	t.Parallel()

	// No workers started, so nothing drains the single-slot queue.
	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, slog.Default())

	require.NoError(t, runner.Submit(context.Background(), newMockTask(nil)))
	err := runner.Submit(context.Background(), newMockTask(nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestTaskRunner_SubmitAfterStop(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, slog.Default())
	require.NoError(t, runner.Start())
	runner.Stop()

	err := runner.Submit(context.Background(), newMockTask(nil))
	assert.ErrorIs(t, err, ErrRunnerStopped)
}

func TestTaskRunner_ErrorHandlerInvoked(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 4}, slog.Default())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(_ Task, err error) {
		handled <- err
	})
	require.NoError(t, runner.Start())
	defer runner.Stop()

	execErr := errors.New("boom")
	require.NoError(t, runner.Submit(context.Background(), newMockTask(execErr)))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, execErr)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not invoked")
	}
}

func TestTaskRunner_StopWaitsForInflightTask(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, slog.Default())
	require.NoError(t, runner.Start())

	inflight := newMockTask(nil)
	inflight.block = make(chan struct{})
	require.NoError(t, runner.Submit(context.Background(), inflight))

	// Give the worker a moment to pick the task up, then release it while
	// Stop is waiting.
	time.Sleep(50 * time.Millisecond)
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(inflight.block)
	}()

	runner.Stop()

	select {
	case <-inflight.done:
	default:
		t.Fatal("Stop returned before the in-flight task finished")
	}
}

func TestTaskRunner_DefaultsApplied(t *testing.T) {
	t.Parallel()

	runner := NewTaskRunner(TaskRunnerConfig{}, slog.Default())
	assert.Equal(t, DefaultTaskRunnerConfig().WorkerCount, runner.config.WorkerCount)
	assert.Equal(t, DefaultTaskRunnerConfig().QueueSize, runner.config.QueueSize)
}
