package generation

import (
	"time"

	"github.com/makeasinger/studio/internal/model"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusStarting Status = "starting"
	StatusPolling  Status = "polling"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// IsTerminal reports whether the job has finished.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Error messages recorded on failed jobs.
const (
	MsgCancelled     = "cancelled by user"
	MsgPollingFailed = "polling failed"
	MsgTimedOut      = "generation timed out"
	MsgProviderError = "generation failed"
)

// Clip is one rendered song returned by the provider.
type Clip struct {
	ID        string  `json:"id"`
	AudioURL  string  `json:"audioUrl"`
	StreamURL string  `json:"streamUrl,omitempty"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Title     string  `json:"title,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// Result holds the output of a completed job.
type Result struct {
	ProviderJobID string   `json:"providerJobId,omitempty"`
	Outputs       []string `json:"outputs"`
	Clips         []Clip   `json:"clips,omitempty"`
}

// Job is a snapshot of one generation request. Result is set only when the
// job is complete and Error only when it failed.
type Job struct {
	ID            string            `json:"id"`
	ProviderJobID string            `json:"providerJobId,omitempty"`
	Details       model.SongDetails `json:"details"`
	StartTime     time.Time         `json:"startTime"`
	Status        Status            `json:"status"`
	Phase         Phase             `json:"phase,omitempty"`
	Progress      float64           `json:"progress"`
	ProgressText  string            `json:"progressText"`
	Result        *Result           `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
}
