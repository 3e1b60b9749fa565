package generation

import (
	"context"

	"github.com/makeasinger/studio/internal/model"
)

// Phase is the provider's coarse status label for a job.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhaseProcessing Phase = "processing"
	PhaseStreaming  Phase = "streaming"
	PhaseReady      Phase = "ready"
	PhaseError      Phase = "error"
)

// IsTerminal reports whether the phase ends polling.
func (p Phase) IsTerminal() bool {
	return p == PhaseReady || p == PhaseError
}

// PollResult is the normalized outcome of one status check.
type PollResult struct {
	Phase   Phase
	Outputs []string
	Clips   []Clip
	Error   string
}

// Provider starts and polls generation jobs on the external service.
// PollJob must be safe to call repeatedly for the same id.
type Provider interface {
	StartJob(ctx context.Context, details model.SongDetails) (providerJobID string, err error)
	PollJob(ctx context.Context, providerJobID string) (PollResult, error)
}
