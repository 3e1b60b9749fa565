package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/makeasinger/studio/internal/config"
)

// maxImageBytes bounds downloads of generated images
const maxImageBytes = 20 << 20

// ImageGenerator creates cover images from a text prompt
type ImageGenerator interface {
	GenerateImages(ctx context.Context, prompt string, n int) ([]string, error)
	IsConfigured() bool
}

// ImageClient generates images through the OpenAI images API
type ImageClient struct {
	client     *openai.Client
	httpClient *http.Client
	apiKey     string
	model      string
	size       string
	log        zerolog.Logger
}

// NewImageClient creates a new image generation client
func NewImageClient(cfg *config.OpenAIConfig, logger zerolog.Logger) *ImageClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &ImageClient{
		client:     openai.NewClientWithConfig(oc),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     cfg.APIKey,
		model:      cfg.ImageModel,
		size:       cfg.ImageSize,
		log:        logger.With().Str("client", "image").Logger(),
	}
}

// GenerateImages returns up to n image URLs. Requests are issued one image at
// a time since some models only accept n=1.
func (c *ImageClient) GenerateImages(ctx context.Context, prompt string, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}
	urls := make([]string, 0, n)
	for i := 0; i < n; i++ {
		resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          c.model,
			N:              1,
			Size:           c.size,
			ResponseFormat: openai.CreateImageResponseFormatURL,
		})
		if err != nil {
			if len(urls) > 0 {
				c.log.Warn().Err(err).Int("generated", len(urls)).Msg("image generation stopped early")
				return urls, nil
			}
			return nil, fmt.Errorf("failed to generate image: %w", err)
		}
		for _, d := range resp.Data {
			if d.URL != "" {
				urls = append(urls, d.URL)
			}
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no images in response")
	}
	return urls, nil
}

// Download fetches a generated image and returns its bytes and content type
func (c *ImageClient) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download failed (status %d)", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ImageClient) IsConfigured() bool {
	return c.apiKey != ""
}
