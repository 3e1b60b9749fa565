package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/client"
	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/storage"
)

const (
	TaskTypeTrackEnrich = "track:enrich"
	QueueTracks         = "tracks"
)

var ErrTrackNotFound = errors.New("track not found")

// TrackStore is the persistence the track service needs
type TrackStore interface {
	GetTrack(ctx context.Context, id string) (*storage.Track, error)
	SetTrack(ctx context.Context, v *storage.Track) error
	ListTracks(ctx context.Context, page, size int, orderBy string, filter ...storage.Filter) ([]*storage.Track, error)
	DeleteTrack(ctx context.Context, id string) error
}

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TrackBroadcaster announces stored tracks to live subscribers
type TrackBroadcaster interface {
	BroadcastTrack(jobID string, track interface{})
}

// EnrichPayload is the asynq payload of a track:enrich task
type EnrichPayload struct {
	TrackID string `json:"trackId"`
}

// TrackService turns completed generation jobs into stored tracks
type TrackService struct {
	store   TrackStore
	tasks   TaskEnqueuer
	hub     TrackBroadcaster
	aligner client.LyricsAligner
	covers  *CoverService
	log     zerolog.Logger
}

// NewTrackService creates a new track service. tasks, hub and aligner may be
// nil; the matching features are skipped.
func NewTrackService(store TrackStore, tasks TaskEnqueuer, hub TrackBroadcaster, aligner client.LyricsAligner, covers *CoverService, logger zerolog.Logger) *TrackService {
	return &TrackService{
		store:   store,
		tasks:   tasks,
		hub:     hub,
		aligner: aligner,
		covers:  covers,
		log:     logger.With().Str("service", "track").Logger(),
	}
}

// OnComplete is the generation manager completion hook
func (s *TrackService) OnComplete(jobID string, result generation.Result, details model.SongDetails) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracks, err := s.Materialize(ctx, jobID, result, details)
	if err != nil {
		s.log.Error().Err(err).Str("jobId", jobID).Msg("failed to materialize tracks")
		return
	}
	s.log.Info().Str("jobId", jobID).Int("tracks", len(tracks)).Msg("tracks stored")
}

// Materialize saves one track per output of a completed job
func (s *TrackService) Materialize(ctx context.Context, jobID string, result generation.Result, details model.SongDetails) ([]*storage.Track, error) {
	clips := make(map[string]generation.Clip, len(result.Clips))
	for _, c := range result.Clips {
		if c.AudioURL != "" {
			clips[c.AudioURL] = c
		}
	}

	tracks := make([]*storage.Track, 0, len(result.Outputs))
	for _, output := range result.Outputs {
		clip := clips[output]
		track := &storage.Track{
			ID:             storage.NewTrackID(),
			JobID:          jobID,
			ProviderTaskID: result.ProviderJobID,
			ProviderClipID: clip.ID,
			Title:          details.DisplayTitle(),
			Style:          client.BuildStyle(details),
			Lyrics:         details.Lyrics,
			Language:       string(details.Language),
			Vocals:         string(details.Vocals),
			AudioURL:       output,
			StreamURL:      clip.StreamURL,
			ImageURL:       clip.ImageURL,
			Duration:       clip.Duration,
		}
		if err := s.store.SetTrack(ctx, track); err != nil {
			return tracks, fmt.Errorf("failed to save track: %w", err)
		}
		tracks = append(tracks, track)

		if s.hub != nil {
			s.hub.BroadcastTrack(jobID, track)
		}
		s.enqueueEnrich(track.ID)
	}
	return tracks, nil
}

func (s *TrackService) enqueueEnrich(trackID string) {
	if s.tasks == nil {
		return
	}
	payload, err := json.Marshal(EnrichPayload{TrackID: trackID})
	if err != nil {
		s.log.Error().Err(err).Str("trackId", trackID).Msg("failed to marshal enrich payload")
		return
	}
	_, err = s.tasks.Enqueue(asynq.NewTask(TaskTypeTrackEnrich, payload),
		asynq.Queue(QueueTracks),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("trackId", trackID).Msg("failed to enqueue enrichment")
	}
}

// Get returns one track
func (s *TrackService) Get(ctx context.Context, id string) (*storage.Track, error) {
	track, err := s.store.GetTrack(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTrackNotFound
	}
	return track, err
}

// List returns a page of tracks, optionally restricted to one job
func (s *TrackService) List(ctx context.Context, page, size int, jobID string) ([]*storage.Track, error) {
	var filters []storage.Filter
	if jobID != "" {
		filters = append(filters, storage.Where("job_id = ?", jobID))
	}
	return s.store.ListTracks(ctx, page, size, "", filters...)
}

// Save persists a modified track and announces it
func (s *TrackService) Save(ctx context.Context, track *storage.Track) error {
	if err := s.store.SetTrack(ctx, track); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.BroadcastTrack(track.JobID, track)
	}
	return nil
}

// AlignLyrics fetches word timestamps for a track when it has none yet. It
// reports whether the track changed.
func (s *TrackService) AlignLyrics(ctx context.Context, track *storage.Track) (bool, error) {
	if len(track.AlignedWords) > 0 || track.Lyrics == "" || s.aligner == nil {
		return false, nil
	}
	if track.ProviderTaskID == "" || track.ProviderClipID == "" {
		return false, nil
	}
	words, err := s.aligner.TimestampedLyrics(ctx, track.ProviderTaskID, track.ProviderClipID)
	if err != nil {
		return false, fmt.Errorf("failed to align lyrics: %w", err)
	}
	if len(words) == 0 {
		return false, nil
	}
	track.AlignedWords = words
	return true, nil
}

// Lyrics returns the track lyrics with word timestamps, aligning on demand
func (s *TrackService) Lyrics(ctx context.Context, id string) (*model.TrackLyricsResponse, error) {
	track, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := s.AlignLyrics(ctx, track)
	if err != nil {
		s.log.Warn().Err(err).Str("trackId", id).Msg("on-demand alignment failed")
	}
	if changed {
		if err := s.store.SetTrack(ctx, track); err != nil {
			return nil, err
		}
	}

	words := track.AlignedWords
	if words == nil {
		words = []model.AlignedWord{}
	}
	return &model.TrackLyricsResponse{TrackID: track.ID, Lyrics: track.Lyrics, Words: words}, nil
}

// Delete removes a track and its stored cover
func (s *TrackService) Delete(ctx context.Context, id string) error {
	track, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTrack(ctx, track.ID); err != nil {
		return err
	}
	if key := s.coverKey(track); key != "" && s.covers != nil {
		if err := s.covers.Remove(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to remove cover of deleted track")
		}
	}
	s.log.Info().Str("trackId", id).Msg("track deleted")
	return nil
}

// coverKey is the stored cover's object key. Tracks saved before keys were
// recorded fall back to parsing the image URL.
func (s *TrackService) coverKey(track *storage.Track) string {
	if track.CoverKey != "" || s.covers == nil {
		return track.CoverKey
	}
	return s.covers.StoredKey(track.ImageURL)
}

// ApplyCover stores an image as the track's cover art
func (s *TrackService) ApplyCover(ctx context.Context, id, imageURL string) (*storage.Track, error) {
	track, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	publicURL, key := imageURL, ""
	if s.covers != nil {
		publicURL, key, err = s.covers.Persist(ctx, track.ID, imageURL)
		if err != nil {
			return nil, err
		}
	}

	oldKey := s.coverKey(track)
	track.ImageURL = publicURL
	track.CoverKey = key
	if err := s.Save(ctx, track); err != nil {
		return nil, err
	}

	if s.covers != nil && oldKey != "" && oldKey != key {
		if err := s.covers.Remove(ctx, oldKey); err != nil {
			s.log.Warn().Err(err).Str("key", oldKey).Msg("failed to remove previous cover")
		}
	}
	return track, nil
}
