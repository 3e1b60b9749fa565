package service

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/client"
	"github.com/makeasinger/studio/internal/model"
)

// ImageDownloader fetches a remote image
type ImageDownloader interface {
	Download(ctx context.Context, imageURL string) ([]byte, string, error)
}

// CoverService generates cover art and copies it into object storage
type CoverService struct {
	images     client.ImageGenerator
	downloader ImageDownloader
	storage    client.StorageClient
	log        zerolog.Logger
}

// NewCoverService creates a new cover service. storage may be nil, in which
// case covers keep their provider URL.
func NewCoverService(images client.ImageGenerator, downloader ImageDownloader, storage client.StorageClient, logger zerolog.Logger) *CoverService {
	return &CoverService{
		images:     images,
		downloader: downloader,
		storage:    storage,
		log:        logger.With().Str("service", "cover").Logger(),
	}
}

// Configured reports whether real image generation is available
func (s *CoverService) Configured() bool {
	return s.images != nil && s.images.IsConfigured()
}

// Generate creates cover candidates for a prompt
func (s *CoverService) Generate(ctx context.Context, req *model.CoverGenerateRequest) (*model.CoverGenerateResponse, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}

	if !s.Configured() {
		return s.generateMock(req.Prompt, count), nil
	}

	images, err := s.images.GenerateImages(ctx, req.Prompt, count)
	if err != nil {
		return nil, fmt.Errorf("AI image generation failed: %w", err)
	}
	return &model.CoverGenerateResponse{Images: images}, nil
}

// Persist copies an image into object storage under the track's prefix and
// returns the public URL and object key. Without storage the URL is returned
// unchanged with an empty key.
func (s *CoverService) Persist(ctx context.Context, trackID, imageURL string) (string, string, error) {
	if s.storage == nil || s.downloader == nil {
		return imageURL, "", nil
	}

	data, contentType, err := s.downloader.Download(ctx, imageURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to download cover: %w", err)
	}

	key := fmt.Sprintf("covers/%s/%s%s", trackID, strings.ToLower(ulid.Make().String()), imageExt(contentType))
	publicURL, err := s.storage.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return "", "", fmt.Errorf("failed to store cover: %w", err)
	}

	s.log.Info().Str("trackId", trackID).Str("key", key).Int("bytes", len(data)).Msg("cover stored")
	return publicURL, key, nil
}

// Remove deletes a previously stored cover
func (s *CoverService) Remove(ctx context.Context, key string) error {
	if s.storage == nil || key == "" {
		return nil
	}
	return s.storage.Delete(ctx, key)
}

// StoredKey returns the object key behind a cover URL served from our
// storage, or "" for external URLs
func (s *CoverService) StoredKey(imageURL string) string {
	if s.storage == nil || imageURL == "" {
		return ""
	}
	key, ok := s.storage.KeyFromURL(imageURL)
	if !ok {
		return ""
	}
	return key
}

// CoverPrompt builds an image prompt from track metadata
func CoverPrompt(title, style string) string {
	prompt := fmt.Sprintf("Album cover art for a song titled %q", title)
	if style != "" {
		prompt += ", " + style + " mood"
	}
	return prompt + ". No text, no lettering, square composition."
}

func imageExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

func (s *CoverService) generateMock(prompt string, count int) *model.CoverGenerateResponse {
	images := make([]string, count)
	for i := range images {
		images[i] = fmt.Sprintf("https://placehold.co/1024x1024/png?text=%s+%d", url.QueryEscape(prompt), i+1)
	}
	return &model.CoverGenerateResponse{Images: images}
}
