package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/curiolab/curio-api/internal/config"
	"github.com/curiolab/curio-api/internal/generation"
	"google.golang.org/genai"
)

// textModel is the slice of the Gemini client the generator needs. It exists
// so tests can substitute a fake without a network client.
type textModel interface {
	generateJSON(ctx context.Context, prompt string) (string, error)
}

// ConceptGenerator implements generation.ConceptGenerator using Google's
// Gemini API with a JSON response MIME type and a strict output schema.
type ConceptGenerator struct {
	logger *slog.Logger
	config config.LLMConfig
	model  textModel

	// baseDelay overrides the configured retry delay when non-zero. Tests use
	// it to avoid real backoff sleeps.
	baseDelay time.Duration
}

var _ generation.ConceptGenerator = (*ConceptGenerator)(nil)

// NewConceptGenerator creates a ConceptGenerator backed by a real Gemini
// client.
func NewConceptGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*ConceptGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &ConceptGenerator{
		logger: logger,
		config: cfg,
		model:  &genaiTextModel{client: client, model: cfg.ModelName},
	}, nil
}

// GenerateConcepts builds the prompt for the request, calls Gemini with retry,
// and validates the response shape. It returns exactly
// generation.ConceptCount drafts or an error, never a partial set.
func (g *ConceptGenerator) GenerateConcepts(ctx context.Context, req generation.Request) ([]generation.Draft, error) {
	prompt, err := g.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	drafts, err := parseDrafts(raw)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "concepts generated",
		"count", len(drafts),
		"variation", req.BaseConcept != nil)
	return drafts, nil
}

// buildPrompt selects the ideation or variation template, applies a tenant
// override when present, and executes it against the request.
func (g *ConceptGenerator) buildPrompt(req generation.Request) (string, error) {
	if strings.TrimSpace(req.Idea) == "" {
		return "", generation.ErrEmptyIdea
	}

	body := freshIdeationTemplate
	if req.BaseConcept != nil {
		body = variationTemplate
	}
	if override := strings.TrimSpace(req.Tenant.PromptTemplate); override != "" {
		body = override
	}

	tmpl, err := template.New("concepts").Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	data := promptData{
		Idea:         req.Idea,
		ConceptCount: generation.ConceptCount,
	}
	if req.BaseConcept != nil {
		data.BaseName = req.BaseConcept.Name
		data.BaseDescription = req.BaseConcept.Description
		data.BaseMaterials = req.BaseConcept.Materials
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return sb.String(), nil
}

// callWithRetry invokes the model with exponential backoff and jitter.
// Permanent errors (blocked content, malformed output) are returned
// immediately; only transient API failures are retried.
func (g *ConceptGenerator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelay := g.baseDelay
	if baseDelay == 0 {
		seconds := g.config.RetryDelaySeconds
		if seconds < 1 {
			seconds = 2
		}
		baseDelay = time.Duration(seconds) * time.Second
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := g.model.generateJSON(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return "", err
		}
		if attempt == maxRetries {
			break
		}

		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		g.logger.WarnContext(ctx, "Gemini call failed, retrying",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
	return "", fmt.Errorf("%w: exceeded %d attempts: %v", generation.ErrTransientFailure, maxRetries+1, lastErr)
}

// parseDrafts decodes and validates the model output: exactly ConceptCount
// concepts, every field present, at least one material each.
func parseDrafts(raw string) ([]generation.Draft, error) {
	var parsed responseSchema
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}

	if len(parsed.Concepts) != generation.ConceptCount {
		return nil, fmt.Errorf("%w: expected %d concepts, got %d",
			generation.ErrInvalidResponse, generation.ConceptCount, len(parsed.Concepts))
	}

	drafts := make([]generation.Draft, 0, generation.ConceptCount)
	for i, c := range parsed.Concepts {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: concept %d missing name", generation.ErrInvalidResponse, i)
		}
		if strings.TrimSpace(c.Description) == "" {
			return nil, fmt.Errorf("%w: concept %d missing description", generation.ErrInvalidResponse, i)
		}
		if len(c.Materials) == 0 {
			return nil, fmt.Errorf("%w: concept %d has no materials", generation.ErrInvalidResponse, i)
		}
		for _, m := range c.Materials {
			if strings.TrimSpace(m) == "" {
				return nil, fmt.Errorf("%w: concept %d has an empty material entry", generation.ErrInvalidResponse, i)
			}
		}
		if strings.TrimSpace(c.ImagePrompt) == "" {
			return nil, fmt.Errorf("%w: concept %d missing image prompt", generation.ErrInvalidResponse, i)
		}
		drafts = append(drafts, generation.Draft{
			Name:        c.Name,
			Description: c.Description,
			Materials:   c.Materials,
			ImagePrompt: c.ImagePrompt,
		})
	}
	return drafts, nil
}

// genaiTextModel adapts the genai client to the textModel interface.
type genaiTextModel struct {
	client *genai.Client
	model  string
}

func (m *genaiTextModel) generateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w", generation.ErrContentBlocked)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}
	return text, nil
}
