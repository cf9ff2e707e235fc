package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"
	"time"

	// Register decoders for the payload formats the backend may return.
	_ "image/png"

	"github.com/curiolab/curio-api/internal/storage"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// DefaultGenerationTimeout bounds one generative call; chosen to accommodate
// model latency.
const DefaultGenerationTimeout = 120 * time.Second

const jpegQuality = 85

// imageModel is the slice of the image-generation client the provider needs,
// kept narrow so tests can substitute a fake.
type imageModel interface {
	generateImage(ctx context.Context, prompt string) (data []byte, mimeType string, err error)
}

// GenerativeProvider renders the prompt with an external image-generation
// model, transcodes the payload to JPEG, and uploads it to blob storage under
// a fresh unique key with public read access.
type GenerativeProvider struct {
	model   imageModel
	blobs   storage.BlobStore
	timeout time.Duration
	logger  *slog.Logger
}

var _ Provider = (*GenerativeProvider)(nil)

// GenerativeOptions configures a GenerativeProvider.
type GenerativeOptions struct {
	Client  *genai.Client
	Model   string
	Blobs   storage.BlobStore
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewGenerativeProvider creates a generative image provider backed by a real
// Gemini client.
func NewGenerativeProvider(opts GenerativeOptions) (*GenerativeProvider, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: genai client is missing", ErrProviderFailed)
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("%w: generative model name is missing", ErrProviderFailed)
	}
	if opts.Blobs == nil {
		return nil, fmt.Errorf("%w: blob store is missing", ErrProviderFailed)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &GenerativeProvider{
		model:   &genaiImageModel{client: opts.Client, model: opts.Model},
		blobs:   opts.Blobs,
		timeout: timeout,
		logger:  log.With("component", "generative_image_provider"),
	}, nil
}

// FetchOrGenerate renders one sample for the prompt within the provider
// timeout, transcodes it to JPEG, and returns the uploaded asset's public URL.
func (p *GenerativeProvider) FetchOrGenerate(ctx context.Context, prompt string) (Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Result{}, ErrEmptyPrompt
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	data, mimeType, err := p.model.generateImage(genCtx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	p.logger.DebugContext(ctx, "image generated",
		"mime_type", mimeType,
		"bytes", len(data),
		"elapsed", time.Since(started))

	transcoded, err := transcodeToJPEG(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	key := fmt.Sprintf("concepts/%s.jpg", uuid.New())
	publicURL, err := p.blobs.Upload(ctx, key, "image/jpeg", transcoded)
	if err != nil {
		return Result{}, fmt.Errorf("%w: upload: %v", ErrProviderFailed, err)
	}
	return Result{URL: publicURL}, nil
}

// transcodeToJPEG normalizes whatever format the model produced into a
// standard compressed JPEG.
func transcodeToJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// genaiImageModel adapts the genai client to the imageModel interface.
type genaiImageModel struct {
	client *genai.Client
	model  string
}

func (m *genaiImageModel) generateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	resp, err := m.client.Models.GenerateImages(ctx, m.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, "", err
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, "", fmt.Errorf("no image returned")
	}
	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return nil, "", fmt.Errorf("empty image payload")
	}
	return img.ImageBytes, img.MIMEType, nil
}
