package imagery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StockProvider resolves prompts against a Pexels-compatible stock photo
// search API. The first hit wins; no hits is a null result, not an error.
type StockProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

var _ Provider = (*StockProvider)(nil)

// StockOptions configures a StockProvider.
type StockOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type stockSearchResponse struct {
	Photos []struct {
		Src struct {
			Large    string `json:"large"`
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// NewStockProvider creates a stock-search provider. A nil HTTP client gets a
// reusable one with a sane timeout.
func NewStockProvider(opts StockOptions) (*StockProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://api.pexels.com"
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: stock API key is missing", ErrProviderFailed)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &StockProvider{
		httpClient: client,
		baseURL:    base,
		apiKey:     apiKey,
		logger:     log.With("component", "stock_image_provider"),
	}, nil
}

// FetchOrGenerate issues a single search query for the prompt and returns the
// first result's image URL, or an empty result when nothing matches.
func (p *StockProvider) FetchOrGenerate(ctx context.Context, prompt string) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}

	endpoint := fmt.Sprintf("%s/v1/search?query=%s&per_page=1", p.baseURL, url.QueryEscape(prompt))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create request: %v", ErrProviderFailed, err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("%w: search status %d: %s",
			ErrProviderFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed stockSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("%w: decode search response: %v", ErrProviderFailed, err)
	}

	if len(parsed.Photos) == 0 {
		p.logger.DebugContext(ctx, "stock search found no match", "prompt_length", len(prompt))
		return Result{}, nil
	}

	src := parsed.Photos[0].Src
	imageURL := src.Large
	if imageURL == "" {
		imageURL = src.Original
	}
	return Result{URL: imageURL}, nil
}
