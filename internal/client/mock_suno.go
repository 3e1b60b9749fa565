package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
)

// MockSunoClient walks every task through the provider phases without
// network access. It backs development runs when no API key is configured.
type MockSunoClient struct {
	mu    sync.Mutex
	tasks map[string]*mockTask
	// PollsPerPhase is how many polls each intermediate phase lasts.
	PollsPerPhase int
}

type mockTask struct {
	details model.SongDetails
	polls   int
}

var (
	_ generation.Provider = (*MockSunoClient)(nil)
	_ LyricsAligner       = (*MockSunoClient)(nil)
)

// NewMockSunoClient creates a mock provider
func NewMockSunoClient() *MockSunoClient {
	return &MockSunoClient{tasks: make(map[string]*mockTask), PollsPerPhase: 2}
}

func (c *MockSunoClient) StartJob(ctx context.Context, details model.SongDetails) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "mock-" + uuid.NewString()
	c.mu.Lock()
	c.tasks[id] = &mockTask{details: details}
	c.mu.Unlock()
	return id, nil
}

func (c *MockSunoClient) PollJob(ctx context.Context, taskID string) (generation.PollResult, error) {
	if err := ctx.Err(); err != nil {
		return generation.PollResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	task, ok := c.tasks[taskID]
	if !ok {
		return generation.PollResult{Phase: generation.PhaseError, Error: "task not found"}, nil
	}
	task.polls++

	phases := []generation.Phase{generation.PhasePending, generation.PhaseProcessing, generation.PhaseStreaming}
	step := (task.polls - 1) / max(c.PollsPerPhase, 1)
	if step < len(phases) {
		return generation.PollResult{Phase: phases[step]}, nil
	}

	clips := []generation.Clip{
		{ID: taskID + "-1", AudioURL: fmt.Sprintf("https://cdn.makeasinger.com/mock/%s-1.mp3", taskID), Title: task.details.DisplayTitle(), Duration: 180},
		{ID: taskID + "-2", AudioURL: fmt.Sprintf("https://cdn.makeasinger.com/mock/%s-2.mp3", taskID), Title: task.details.DisplayTitle(), Duration: 176},
	}
	return generation.PollResult{
		Phase:   generation.PhaseReady,
		Outputs: []string{clips[0].AudioURL, clips[1].AudioURL},
		Clips:   clips,
	}, nil
}

// TimestampedLyrics spreads the task's lyric words evenly, half a second apart
func (c *MockSunoClient) TimestampedLyrics(ctx context.Context, taskID, audioID string) ([]model.AlignedWord, error) {
	c.mu.Lock()
	task, ok := c.tasks[taskID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}

	var words []model.AlignedWord
	for i, w := range strings.Fields(task.details.Lyrics) {
		start := float64(i) * 0.5
		words = append(words, model.AlignedWord{Word: w, StartS: start, EndS: start + 0.45, Success: true, PAlign: 1})
	}
	return words, nil
}
