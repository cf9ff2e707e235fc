package imagery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageModel struct {
	data     []byte
	mimeType string
	err      error
	delay    time.Duration

	mu      sync.Mutex
	prompts []string
}

func (m *fakeImageModel) generateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if m.err != nil {
		return nil, "", m.err
	}
	return m.data, m.mimeType, nil
}

type fakeBlobStore struct {
	err error

	mu       sync.Mutex
	lastKey  string
	lastType string
	lastData []byte
}

func (b *fakeBlobStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.lastKey = key
	b.lastType = contentType
	b.lastData = append([]byte(nil), data...)
	return "https://cdn.example/" + key, nil
}

func encodedPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestGenerativeProvider(model imageModel, blobs *fakeBlobStore, timeout time.Duration) *GenerativeProvider {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &GenerativeProvider{
		model:   model,
		blobs:   blobs,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

func TestGenerativeProvider_FetchOrGenerate(t *testing.T) {
	t.Parallel()

	t.Run("transcodes and uploads as JPEG", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{data: encodedPNG(t), mimeType: "image/png"}
		blobs := &fakeBlobStore{}
		p := newTestGenerativeProvider(model, blobs, 0)

		res, err := p.FetchOrGenerate(context.Background(), "a walnut coaster")
		require.NoError(t, err)

		assert.Equal(t, []string{"a walnut coaster"}, model.prompts)
		assert.True(t, strings.HasPrefix(blobs.lastKey, "concepts/"), "key %q", blobs.lastKey)
		assert.True(t, strings.HasSuffix(blobs.lastKey, ".jpg"), "key %q", blobs.lastKey)
		assert.Equal(t, "image/jpeg", blobs.lastType)
		assert.Equal(t, "https://cdn.example/"+blobs.lastKey, res.URL)

		decoded, format, err := image.Decode(bytes.NewReader(blobs.lastData))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, image.Rect(0, 0, 4, 4), decoded.Bounds())
	})

	t.Run("distinct keys per call", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{data: encodedPNG(t), mimeType: "image/png"}
		blobs := &fakeBlobStore{}
		p := newTestGenerativeProvider(model, blobs, 0)

		first, err := p.FetchOrGenerate(context.Background(), "coaster")
		require.NoError(t, err)
		second, err := p.FetchOrGenerate(context.Background(), "coaster")
		require.NoError(t, err)
		assert.NotEqual(t, first.URL, second.URL)
	})

	t.Run("empty prompt rejected", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{data: encodedPNG(t), mimeType: "image/png"}
		p := newTestGenerativeProvider(model, &fakeBlobStore{}, 0)

		_, err := p.FetchOrGenerate(context.Background(), " ")
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Empty(t, model.prompts)
	})

	t.Run("model failure surfaces", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{err: errors.New("quota exhausted")}
		p := newTestGenerativeProvider(model, &fakeBlobStore{}, 0)

		_, err := p.FetchOrGenerate(context.Background(), "coaster")
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.ErrorContains(t, err, "quota exhausted")
	})

	t.Run("generation timeout cancels the call", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{data: encodedPNG(t), mimeType: "image/png", delay: time.Second}
		p := newTestGenerativeProvider(model, &fakeBlobStore{}, 10*time.Millisecond)

		_, err := p.FetchOrGenerate(context.Background(), "coaster")
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.ErrorContains(t, err, context.DeadlineExceeded.Error())
	})

	t.Run("undecodable payload fails", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{data: []byte("not an image"), mimeType: "image/png"}
		p := newTestGenerativeProvider(model, &fakeBlobStore{}, 0)

		_, err := p.FetchOrGenerate(context.Background(), "coaster")
		assert.ErrorIs(t, err, ErrProviderFailed)
	})

	t.Run("upload failure surfaces", func(t *testing.T) {
		t.Parallel()

		model := &fakeImageModel{data: encodedPNG(t), mimeType: "image/png"}
		blobs := &fakeBlobStore{err: fmt.Errorf("disk full")}
		p := newTestGenerativeProvider(model, blobs, 0)

		_, err := p.FetchOrGenerate(context.Background(), "coaster")
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestNewGenerativeProvider_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewGenerativeProvider(GenerativeOptions{})
	assert.ErrorIs(t, err, ErrProviderFailed)
}
