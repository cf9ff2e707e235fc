package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiolab/curio-api/internal/domain"
	"github.com/curiolab/curio-api/internal/events"
)

type captureEmitter struct {
	err    error
	events []*events.TaskRequestEvent
}

func (e *captureEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func validRequest() Request {
	return Request{
		JobID: uuid.New(),
		Idea:  "a harbor-themed souvenir",
		Tenant: domain.TenantConfig{
			ImageProvider: domain.ImageProviderStock,
		},
	}
}

func TestEventDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("emits a concept generation event", func(t *testing.T) {
		t.Parallel()

		emitter := &captureEmitter{}
		d := NewEventDispatcher(emitter, slog.Default())
		req := validRequest()

		require.NoError(t, d.Dispatch(context.Background(), req))
		require.Len(t, emitter.events, 1)
		assert.Equal(t, events.TaskTypeConceptGeneration, emitter.events[0].Type)

		var decoded Request
		require.NoError(t, emitter.events[0].UnmarshalPayload(&decoded))
		assert.Equal(t, req.JobID, decoded.JobID)
		assert.Equal(t, req.Idea, decoded.Idea)
	})

	t.Run("rejects invalid requests without emitting", func(t *testing.T) {
		t.Parallel()

		emitter := &captureEmitter{}
		d := NewEventDispatcher(emitter, slog.Default())

		err := d.Dispatch(context.Background(), Request{Idea: "no job id"})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		err = d.Dispatch(context.Background(), Request{JobID: uuid.New()})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		assert.Empty(t, emitter.events)
	})

	t.Run("emitter failure is a dispatch failure", func(t *testing.T) {
		t.Parallel()

		emitter := &captureEmitter{err: errors.New("queue full")}
		d := NewEventDispatcher(emitter, slog.Default())

		err := d.Dispatch(context.Background(), validRequest())
		assert.ErrorIs(t, err, ErrDispatchFailed)
	})
}

func TestHTTPDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	newDispatcher := func(t *testing.T, handler http.HandlerFunc) (*HTTPDispatcher, *TokenService) {
		t.Helper()
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		tokens := newTestTokenService(t, 300)
		d, err := NewHTTPDispatcher(HTTPDispatcherOptions{
			WorkerURL:  srv.URL,
			Tokens:     tokens,
			HTTPClient: srv.Client(),
			Logger:     slog.Default(),
		})
		require.NoError(t, err)
		return d, tokens
	}

	t.Run("posts an authenticated request", func(t *testing.T) {
		t.Parallel()

		req := validRequest()
		var gotBody Request
		var gotAuth string

		d, tokens := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, WorkerEndpointPath, r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusAccepted)
		})

		require.NoError(t, d.Dispatch(context.Background(), req))
		assert.Equal(t, req.JobID, gotBody.JobID)
		assert.Equal(t, req.Idea, gotBody.Idea)

		require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
		jobID, err := tokens.Verify(context.Background(), strings.TrimPrefix(gotAuth, "Bearer "))
		require.NoError(t, err)
		assert.Equal(t, req.JobID, jobID)
	})

	t.Run("non-2xx is a dispatch failure", func(t *testing.T) {
		t.Parallel()

		d, _ := newDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "queue full", http.StatusServiceUnavailable)
		})

		err := d.Dispatch(context.Background(), validRequest())
		assert.ErrorIs(t, err, ErrDispatchFailed)
		assert.ErrorContains(t, err, "503")
	})

	t.Run("transport error is a dispatch failure", func(t *testing.T) {
		t.Parallel()

		tokens := newTestTokenService(t, 300)
		d, err := NewHTTPDispatcher(HTTPDispatcherOptions{
			WorkerURL: "http://127.0.0.1:1", // nothing listens here
			Tokens:    tokens,
		})
		require.NoError(t, err)

		err = d.Dispatch(context.Background(), validRequest())
		assert.ErrorIs(t, err, ErrDispatchFailed)
	})

	t.Run("constructor validation", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPDispatcher(HTTPDispatcherOptions{Tokens: newTestTokenService(t, 300)})
		assert.Error(t, err)

		_, err = NewHTTPDispatcher(HTTPDispatcherOptions{WorkerURL: "http://worker.internal"})
		assert.Error(t, err)
	})
}
