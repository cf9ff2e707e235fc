package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WorkerEndpointPath is the internal route HTTP dispatch posts to.
const WorkerEndpointPath = "/internal/tasks/concept-generation"

// HTTPDispatcher hands jobs to a worker instance over HTTP, authenticated
// with a short-lived dispatch token. Used when launcher and worker run as
// separate deployments.
type HTTPDispatcher struct {
	httpClient *http.Client
	workerURL  string
	tokens     *TokenService
	logger     *slog.Logger
}

var _ Dispatcher = (*HTTPDispatcher)(nil)

// HTTPDispatcherOptions configures an HTTPDispatcher.
type HTTPDispatcherOptions struct {
	WorkerURL  string
	Tokens     *TokenService
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewHTTPDispatcher creates a dispatcher that posts jobs to a remote worker.
func NewHTTPDispatcher(opts HTTPDispatcherOptions) (*HTTPDispatcher, error) {
	workerURL := strings.TrimRight(strings.TrimSpace(opts.WorkerURL), "/")
	if workerURL == "" {
		return nil, fmt.Errorf("worker URL is required")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &HTTPDispatcher{
		httpClient: client,
		workerURL:  workerURL,
		tokens:     opts.Tokens,
		logger:     log.With("component", "http_dispatcher"),
	}, nil
}

// Dispatch posts the request to the worker endpoint. Any transport error or
// non-2xx response is a dispatch failure.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrDispatchFailed, err)
	}

	token, err := d.tokens.Mint(ctx, req.JobID)
	if err != nil {
		return fmt.Errorf("%w: minting token: %v", ErrDispatchFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, d.workerURL+WorkerEndpointPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrDispatchFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: worker returned status %d: %s",
			ErrDispatchFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	d.logger.DebugContext(ctx, "job dispatched via http",
		"job_id", req.JobID,
		"status", resp.StatusCode)
	return nil
}
