package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/makeasinger/studio/internal/model"
	"github.com/makeasinger/studio/internal/storage"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New("sqlite", filepath.Join(t.TempDir(), "tracks.db"), false)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type fakeHub struct {
	mu     sync.Mutex
	tracks []string
}

func (h *fakeHub) BroadcastTrack(jobID string, track interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tracks = append(h.tracks, jobID)
}

type fakeAligner struct {
	words []model.AlignedWord
	err   error
	calls int
}

func (a *fakeAligner) TimestampedLyrics(ctx context.Context, taskID, audioID string) ([]model.AlignedWord, error) {
	a.calls++
	return a.words, a.err
}

type fakeImages struct {
	urls       []string
	configured bool
	prompts    []string
}

func (f *fakeImages) GenerateImages(ctx context.Context, prompt string, n int) ([]string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.urls) == 0 {
		return nil, errors.New("no images")
	}
	return f.urls[:min(n, len(f.urls))], nil
}

func (f *fakeImages) IsConfigured() bool { return f.configured }

type fakeDownloader struct{}

func (fakeDownloader) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	return []byte("img:" + imageURL), "image/png", nil
}

type fakeObjectStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	s.objects[key] = buf.Bytes()
	return s.GetPublicURL(key), nil
}

func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeObjectStore) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (s *fakeObjectStore) KeyFromURL(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, s.GetPublicURL(""))
	return key, ok && key != ""
}
