package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/storage"
)

func completedResult() generation.Result {
	return generation.Result{
		ProviderJobID: "task-1",
		Outputs:       []string{"https://cdn/a.mp3", "https://cdn/b.mp3"},
		Clips: []generation.Clip{
			{ID: "clip-a", AudioURL: "https://cdn/a.mp3", ImageURL: "https://img/a.jpg", Duration: 120},
			{ID: "clip-b", AudioURL: "https://cdn/b.mp3", Duration: 118},
		},
	}
}

func TestTrackService_Materialize(t *testing.T) {
	store := newStore(t)
	tasks := &fakeEnqueuer{}
	hub := &fakeHub{}
	s := NewTrackService(store, tasks, hub, nil, nil, zerolog.Nop())

	details := model.SongDetails{Style: "pop", Lyrics: "hello world", Vocals: model.VocalsFemale}
	tracks, err := s.Materialize(context.Background(), "job-1", completedResult(), details)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tracks))
	}

	a := tracks[0]
	if a.Title != "Untitled" || a.ProviderClipID != "clip-a" || a.ProviderTaskID != "task-1" || a.ImageURL != "https://img/a.jpg" {
		t.Errorf("track a = %+v", a)
	}
	if a.Style != "pop, female vocals" || a.Lyrics != "hello world" {
		t.Errorf("track a style/lyrics = %q/%q", a.Style, a.Lyrics)
	}

	stored, err := s.List(context.Background(), 1, 10, "job-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored = %d", len(stored))
	}

	if len(hub.tracks) != 2 || hub.tracks[0] != "job-1" {
		t.Errorf("broadcasts = %v", hub.tracks)
	}
	if len(tasks.tasks) != 2 || tasks.tasks[0].Type() != TaskTypeTrackEnrich {
		t.Fatalf("tasks = %d", len(tasks.tasks))
	}
	var p EnrichPayload
	if err := json.Unmarshal(tasks.tasks[1].Payload(), &p); err != nil || p.TrackID != tracks[1].ID {
		t.Errorf("payload = %+v err = %v", p, err)
	}
}

func TestTrackService_OnCompleteToleratesEnqueueFailure(t *testing.T) {
	store := newStore(t)
	s := NewTrackService(store, &fakeEnqueuer{err: errors.New("redis down")}, nil, nil, nil, zerolog.Nop())

	s.OnComplete("job-2", completedResult(), model.SongDetails{Title: "T", Lyrics: "x"})

	tracks, err := s.List(context.Background(), 1, 10, "job-2")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("tracks = %d, want 2", len(tracks))
	}
}

func TestTrackService_GetNotFound(t *testing.T) {
	s := NewTrackService(newStore(t), nil, nil, nil, nil, zerolog.Nop())
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("err = %v, want ErrTrackNotFound", err)
	}
}

func TestTrackService_LyricsAlignsOnDemand(t *testing.T) {
	store := newStore(t)
	aligner := &fakeAligner{words: []model.AlignedWord{{Word: "hello", StartS: 0, EndS: 0.5, Success: true}}}
	s := NewTrackService(store, nil, nil, aligner, nil, zerolog.Nop())
	ctx := context.Background()

	track := &storage.Track{JobID: "j", ProviderTaskID: "task", ProviderClipID: "clip", Lyrics: "hello"}
	if err := store.SetTrack(ctx, track); err != nil {
		t.Fatalf("SetTrack: %v", err)
	}

	resp, err := s.Lyrics(ctx, track.ID)
	if err != nil {
		t.Fatalf("Lyrics: %v", err)
	}
	if len(resp.Words) != 1 || resp.Words[0].Word != "hello" {
		t.Errorf("words = %+v", resp.Words)
	}

	// Stored words are reused.
	if _, err := s.Lyrics(ctx, track.ID); err != nil {
		t.Fatalf("Lyrics: %v", err)
	}
	if aligner.calls != 1 {
		t.Errorf("aligner calls = %d, want 1", aligner.calls)
	}
}

func TestTrackService_LyricsWithoutAlignment(t *testing.T) {
	store := newStore(t)
	s := NewTrackService(store, nil, nil, &fakeAligner{err: errors.New("boom")}, nil, zerolog.Nop())
	ctx := context.Background()

	track := &storage.Track{JobID: "j", ProviderTaskID: "task", ProviderClipID: "clip", Lyrics: "hello"}
	store.SetTrack(ctx, track)

	resp, err := s.Lyrics(ctx, track.ID)
	if err != nil {
		t.Fatalf("Lyrics: %v", err)
	}
	if resp.Lyrics != "hello" || resp.Words == nil || len(resp.Words) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTrackService_ApplyCover(t *testing.T) {
	store := newStore(t)
	objects := newFakeObjectStore()
	covers := NewCoverService(nil, fakeDownloader{}, objects, zerolog.Nop())
	hub := &fakeHub{}
	s := NewTrackService(store, nil, hub, nil, covers, zerolog.Nop())
	ctx := context.Background()

	track := &storage.Track{JobID: "j"}
	store.SetTrack(ctx, track)

	first, err := s.ApplyCover(ctx, track.ID, "https://img/1.png")
	if err != nil {
		t.Fatalf("ApplyCover: %v", err)
	}
	if first.CoverKey == "" || first.ImageURL != objects.GetPublicURL(first.CoverKey) {
		t.Errorf("track = %+v", first)
	}
	firstKey := first.CoverKey

	second, err := s.ApplyCover(ctx, track.ID, "https://img/2.png")
	if err != nil {
		t.Fatalf("ApplyCover: %v", err)
	}
	if second.CoverKey == firstKey {
		t.Error("expected a new cover key")
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != firstKey {
		t.Errorf("deleted = %v", objects.deleted)
	}
	if len(hub.tracks) != 2 {
		t.Errorf("broadcasts = %d", len(hub.tracks))
	}

	got, _ := s.Get(ctx, track.ID)
	if got.ImageURL != second.ImageURL {
		t.Errorf("stored image = %q", got.ImageURL)
	}
}

func TestTrackService_ApplyCoverNotFound(t *testing.T) {
	s := NewTrackService(newStore(t), nil, nil, nil, nil, zerolog.Nop())
	if _, err := s.ApplyCover(context.Background(), "nope", "https://img/1.png"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestTrackService_ApplyCoverRemovesUnkeyedStoredCover(t *testing.T) {
	store := newStore(t)
	objects := newFakeObjectStore()
	covers := NewCoverService(nil, fakeDownloader{}, objects, zerolog.Nop())
	s := NewTrackService(store, nil, nil, nil, covers, zerolog.Nop())
	ctx := context.Background()

	// Saved with a stored cover URL but no recorded key.
	track := &storage.Track{JobID: "j", ImageURL: objects.GetPublicURL("covers/old/a.png")}
	store.SetTrack(ctx, track)

	if _, err := s.ApplyCover(ctx, track.ID, "https://img/1.png"); err != nil {
		t.Fatalf("ApplyCover: %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "covers/old/a.png" {
		t.Errorf("deleted = %v", objects.deleted)
	}
}

func TestTrackService_ApplyCoverKeepsExternalCover(t *testing.T) {
	store := newStore(t)
	objects := newFakeObjectStore()
	covers := NewCoverService(nil, fakeDownloader{}, objects, zerolog.Nop())
	s := NewTrackService(store, nil, nil, nil, covers, zerolog.Nop())
	ctx := context.Background()

	track := &storage.Track{JobID: "j", ImageURL: "https://img/provider.jpg"}
	store.SetTrack(ctx, track)

	if _, err := s.ApplyCover(ctx, track.ID, "https://img/1.png"); err != nil {
		t.Fatalf("ApplyCover: %v", err)
	}
	if len(objects.deleted) != 0 {
		t.Errorf("deleted = %v", objects.deleted)
	}
}

func TestTrackService_Delete(t *testing.T) {
	store := newStore(t)
	objects := newFakeObjectStore()
	covers := NewCoverService(nil, fakeDownloader{}, objects, zerolog.Nop())
	s := NewTrackService(store, nil, nil, nil, covers, zerolog.Nop())
	ctx := context.Background()

	track := &storage.Track{JobID: "j", CoverKey: "covers/t/a.png", ImageURL: objects.GetPublicURL("covers/t/a.png")}
	store.SetTrack(ctx, track)

	if err := s.Delete(ctx, track.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, track.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "covers/t/a.png" {
		t.Errorf("deleted = %v", objects.deleted)
	}
	if err := s.Delete(ctx, track.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("second Delete: %v", err)
	}
}
