package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/service"
)

// TrackWorker enriches stored tracks with lyric timestamps and cover art
type TrackWorker struct {
	tracks *service.TrackService
	covers *service.CoverService
	log    zerolog.Logger
}

// NewTrackWorker creates a new track worker
func NewTrackWorker(tracks *service.TrackService, covers *service.CoverService, logger zerolog.Logger) *TrackWorker {
	return &TrackWorker{
		tracks: tracks,
		covers: covers,
		log:    logger.With().Str("worker", "track").Logger(),
	}
}

// ProcessTask handles track:enrich tasks
func (w *TrackWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.EnrichPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	log := w.log.With().Str("trackId", payload.TrackID).Logger()
	track, err := w.tracks.Get(ctx, payload.TrackID)
	if errors.Is(err, service.ErrTrackNotFound) {
		log.Warn().Msg("track gone, skipping enrichment")
		return nil
	}
	if err != nil {
		return err
	}

	aligned, err := w.tracks.AlignLyrics(ctx, track)
	if err != nil {
		return err
	}
	if aligned {
		if err := w.tracks.Save(ctx, track); err != nil {
			return err
		}
		log.Info().Int("words", len(track.AlignedWords)).Msg("lyrics aligned")
	}

	if track.ImageURL != "" || w.covers == nil || !w.covers.Configured() {
		return nil
	}

	images, err := w.covers.Generate(ctx, &model.CoverGenerateRequest{Prompt: service.CoverPrompt(track.Title, track.Style), Count: 1})
	if err != nil {
		return err
	}
	if _, err := w.tracks.ApplyCover(ctx, track.ID, images.Images[0]); err != nil {
		return err
	}
	log.Info().Msg("cover generated")
	return nil
}
