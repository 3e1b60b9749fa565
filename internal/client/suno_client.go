package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/config"
	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
)

// LyricsAligner returns word-level timestamps for a rendered clip
type LyricsAligner interface {
	TimestampedLyrics(ctx context.Context, taskID, audioID string) ([]model.AlignedWord, error)
}

// SunoClient implements generation.Provider and LyricsAligner for the
// sunoapi.org REST API
type SunoClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	callbackURL string
	log         zerolog.Logger
}

var (
	_ generation.Provider = (*SunoClient)(nil)
	_ LyricsAligner       = (*SunoClient)(nil)
)

// GenerateMusicRequest represents the request for music generation
type GenerateMusicRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model"`
	CallBackURL  string `json:"callBackUrl"`
}

// apiResponse is the envelope wrapping every sunoapi.org response
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// recordInfo is the payload of the generation status endpoint
type recordInfo struct {
	TaskID       string                     `json:"taskId"`
	Status       string                     `json:"status"`
	ErrorCode    json.RawMessage            `json:"errorCode,omitempty"`
	ErrorMessage string                     `json:"errorMessage"`
	Response     map[string]json.RawMessage `json:"response"`
}

type alignedWordsData struct {
	AlignedWords []model.AlignedWord `json:"alignedWords"`
}

// Provider task statuses
const (
	sunoStatusPending       = "PENDING"
	sunoStatusTextSuccess   = "TEXT_SUCCESS"
	sunoStatusFirstSuccess  = "FIRST_SUCCESS"
	sunoStatusSuccess       = "SUCCESS"
	sunoStatusCreateFailed  = "CREATE_TASK_FAILED"
	sunoStatusAudioFailed   = "GENERATE_AUDIO_FAILED"
	sunoStatusCallbackError = "CALLBACK_EXCEPTION"
	sunoStatusSensitiveWord = "SENSITIVE_WORD_ERROR"
)

// NewSunoClient creates a new Suno API client
func NewSunoClient(cfg *config.SunoConfig, logger zerolog.Logger) *SunoClient {
	return &SunoClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		callbackURL: cfg.CallbackURL,
		log:         logger.With().Str("client", "suno").Logger(),
	}
}

// StartJob submits a generation request and returns the provider task id
func (c *SunoClient) StartJob(ctx context.Context, details model.SongDetails) (string, error) {
	req := &GenerateMusicRequest{
		Prompt:       details.Lyrics,
		Style:        BuildStyle(details),
		Title:        details.DisplayTitle(),
		CustomMode:   true,
		Instrumental: details.Instrumental(),
		Model:        c.model,
		CallBackURL:  c.callbackURL,
	}
	if req.Instrumental {
		req.Prompt = ""
	}

	var data struct {
		TaskID string `json:"taskId"`
	}
	if err := c.post(ctx, "/api/v1/generate", req, &data); err != nil {
		return "", err
	}
	if data.TaskID == "" {
		return "", fmt.Errorf("suno API returned no task id")
	}
	return data.TaskID, nil
}

// PollJob retrieves the status of a generation task
func (c *SunoClient) PollJob(ctx context.Context, taskID string) (generation.PollResult, error) {
	endpoint := "/api/v1/generate/record-info?taskId=" + url.QueryEscape(taskID)
	var info recordInfo
	if err := c.get(ctx, endpoint, &info); err != nil {
		return generation.PollResult{}, err
	}
	return info.toPollResult(), nil
}

// TimestampedLyrics fetches word alignments for one clip of a finished task
func (c *SunoClient) TimestampedLyrics(ctx context.Context, taskID, audioID string) ([]model.AlignedWord, error) {
	req := map[string]string{"taskId": taskID, "audioId": audioID}
	var data alignedWordsData
	if err := c.post(ctx, "/api/v1/generate/get-timestamped-lyrics", req, &data); err != nil {
		return nil, err
	}
	return data.AlignedWords, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *SunoClient) IsConfigured() bool {
	return c.apiKey != ""
}

// BuildStyle joins the descriptive song fields into the provider style prompt
func BuildStyle(d model.SongDetails) string {
	var parts []string
	for _, p := range []string{d.Style, d.Genre, d.Mood, d.Tempo} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch d.Vocals {
	case "", model.VocalsInstrumental:
	default:
		parts = append(parts, string(d.Vocals)+" vocals")
	}
	if d.Language != "" && d.Language != model.LanguageEN {
		parts = append(parts, "sung in "+string(d.Language))
	}
	return strings.Join(parts, ", ")
}

func (r recordInfo) toPollResult() generation.PollResult {
	res := generation.PollResult{Phase: mapStatus(r.Status)}
	if res.Phase == generation.PhaseError {
		res.Error = r.ErrorMessage
		if res.Error == "" {
			res.Error = strings.ToLower(strings.ReplaceAll(r.Status, "_", " "))
		}
		return res
	}

	res.Clips = normalizeClips(r.Response)
	if res.Phase == generation.PhaseReady {
		for _, clip := range res.Clips {
			if clip.AudioURL != "" {
				res.Outputs = append(res.Outputs, clip.AudioURL)
			}
		}
	}
	return res
}

func mapStatus(status string) generation.Phase {
	switch strings.ToUpper(status) {
	case sunoStatusPending, "":
		return generation.PhasePending
	case sunoStatusTextSuccess:
		return generation.PhaseProcessing
	case sunoStatusFirstSuccess:
		return generation.PhaseStreaming
	case sunoStatusSuccess, "COMPLETE", "COMPLETED":
		return generation.PhaseReady
	case sunoStatusCreateFailed, sunoStatusAudioFailed, sunoStatusCallbackError, sunoStatusSensitiveWord, "FAILED", "ERROR":
		return generation.PhaseError
	default:
		return generation.Phase(strings.ToLower(status))
	}
}

// Field-name variants seen in provider payloads, in order of preference.
var (
	clipListKeys    = []string{"sunoData", "suno_data", "data", "clips"}
	clipIDKeys      = []string{"id", "audioId", "audio_id", "clipId", "clip_id"}
	clipAudioKeys   = []string{"audioUrl", "audio_url", "sourceAudioUrl", "source_audio_url"}
	clipStreamKeys  = []string{"streamAudioUrl", "stream_audio_url", "sourceStreamAudioUrl", "source_stream_audio_url"}
	clipImageKeys   = []string{"imageUrl", "image_url", "sourceImageUrl", "source_image_url"}
	clipTitleKeys   = []string{"title"}
	clipDurationKey = []string{"duration", "durationS", "duration_s"}
)

// normalizeClips is the one place provider field-name variants are resolved
// into the canonical clip shape.
func normalizeClips(response map[string]json.RawMessage) []generation.Clip {
	var raw []map[string]any
	for _, key := range clipListKeys {
		if v, ok := response[key]; ok && len(v) > 0 {
			if err := json.Unmarshal(v, &raw); err == nil {
				break
			}
		}
	}

	clips := make([]generation.Clip, 0, len(raw))
	for _, m := range raw {
		clip := generation.Clip{
			ID:        firstString(m, clipIDKeys),
			AudioURL:  firstString(m, clipAudioKeys),
			StreamURL: firstString(m, clipStreamKeys),
			ImageURL:  firstString(m, clipImageKeys),
			Title:     firstString(m, clipTitleKeys),
			Duration:  firstNumber(m, clipDurationKey),
		}
		if clip.AudioURL == "" && clip.StreamURL == "" && clip.ID == "" {
			continue
		}
		clips = append(clips, clip)
	}
	return clips
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys []string) float64 {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok {
			return f
		}
	}
	return 0
}

// post sends a POST request with JSON body
func (c *SunoClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *SunoClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request, unwraps the response envelope and
// decodes its data into result
func (c *SunoClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("→ request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("✗ request failed")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Str("url", req.URL.String()).Bytes("body", respBody).Msg("← response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("suno API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if envelope.Code != 0 && envelope.Code != http.StatusOK {
		return fmt.Errorf("suno API error (code %d): %s", envelope.Code, envelope.Msg)
	}
	if result == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}

	return nil
}
