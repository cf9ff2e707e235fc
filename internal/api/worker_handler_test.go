package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiolab/curio-api/internal/api/middleware"
	"github.com/curiolab/curio-api/internal/config"
	"github.com/curiolab/curio-api/internal/dispatch"
	"github.com/curiolab/curio-api/internal/task"
)

type stubTask struct{ id uuid.UUID }

func (s *stubTask) ID() uuid.UUID           { return s.id }
func (s *stubTask) Type() string            { return task.TaskTypeConceptGeneration }
func (s *stubTask) Payload() []byte         { return nil }
func (s *stubTask) Status() task.TaskStatus { return task.TaskStatusPending }
func (s *stubTask) Execute(context.Context) error {
	return nil
}

type stubFactory struct {
	err      error
	payloads []task.ConceptGenerationPayload
}

func (f *stubFactory) CreateTask(p task.ConceptGenerationPayload) (task.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, p)
	return &stubTask{id: uuid.New()}, nil
}

type stubSubmitter struct {
	err   error
	tasks []task.Task
}

func (s *stubSubmitter) Submit(_ context.Context, t task.Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, t)
	return nil
}

func newWorkerRouter(t *testing.T, factory task.TaskFactory, submitter task.TaskSubmitter) (http.Handler, *dispatch.TokenService) {
	t.Helper()

	tokens, err := dispatch.NewTokenService(config.DispatchConfig{
		Secret:               "0123456789abcdef0123456789abcdef",
		TokenLifetimeSeconds: 300,
	})
	require.NoError(t, err)

	h := NewWorkerHandler(factory, submitter)
	auth := middleware.NewDispatchAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Route("/internal/tasks", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Post("/concept-generation", h.EnqueueConceptGeneration)
	})
	return r, tokens
}

func postConceptGeneration(t *testing.T, router http.Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/tasks/concept-generation", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWorkerHandler_EnqueueConceptGeneration(t *testing.T) {
	t.Parallel()

	t.Run("accepts an authenticated dispatch", func(t *testing.T) {
		t.Parallel()

		factory := &stubFactory{}
		submitter := &stubSubmitter{}
		router, tokens := newWorkerRouter(t, factory, submitter)

		jobID := uuid.New()
		token, err := tokens.Mint(context.Background(), jobID)
		require.NoError(t, err)

		rec := postConceptGeneration(t, router, token,
			`{"jobId":"`+jobID.String()+`","idea":"an idea"}`)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, factory.payloads, 1)
		assert.Equal(t, jobID, factory.payloads[0].JobID)
		assert.Len(t, submitter.tasks, 1)
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		t.Parallel()

		router, _ := newWorkerRouter(t, &stubFactory{}, &stubSubmitter{})
		rec := postConceptGeneration(t, router, "", `{"jobId":"`+uuid.NewString()+`","idea":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		t.Parallel()

		router, _ := newWorkerRouter(t, &stubFactory{}, &stubSubmitter{})

		other, err := dispatch.NewTokenService(config.DispatchConfig{
			Secret:               "ffffffffffffffffffffffffffffffff",
			TokenLifetimeSeconds: 300,
		})
		require.NoError(t, err)
		jobID := uuid.New()
		token, err := other.Mint(context.Background(), jobID)
		require.NoError(t, err)

		rec := postConceptGeneration(t, router, token,
			`{"jobId":"`+jobID.String()+`","idea":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a token minted for another job", func(t *testing.T) {
		t.Parallel()

		router, tokens := newWorkerRouter(t, &stubFactory{}, &stubSubmitter{})
		token, err := tokens.Mint(context.Background(), uuid.New())
		require.NoError(t, err)

		rec := postConceptGeneration(t, router, token,
			`{"jobId":"`+uuid.NewString()+`","idea":"x"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		t.Parallel()

		router, tokens := newWorkerRouter(t, &stubFactory{}, &stubSubmitter{})
		jobID := uuid.New()
		token, err := tokens.Mint(context.Background(), jobID)
		require.NoError(t, err)

		rec := postConceptGeneration(t, router, token, `{"jobId":"`+jobID.String()+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("full queue is 503", func(t *testing.T) {
		t.Parallel()

		router, tokens := newWorkerRouter(t, &stubFactory{}, &stubSubmitter{err: task.ErrQueueFull})
		jobID := uuid.New()
		token, err := tokens.Mint(context.Background(), jobID)
		require.NoError(t, err)

		rec := postConceptGeneration(t, router, token,
			`{"jobId":"`+jobID.String()+`","idea":"an idea"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("factory rejection is 400", func(t *testing.T) {
		t.Parallel()

		router, tokens := newWorkerRouter(t, &stubFactory{err: errors.New("bad payload")}, &stubSubmitter{})
		jobID := uuid.New()
		token, err := tokens.Mint(context.Background(), jobID)
		require.NoError(t, err)

		rec := postConceptGeneration(t, router, token,
			`{"jobId":"`+jobID.String()+`","idea":"an idea"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
