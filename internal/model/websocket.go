package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypeTrack    = "track"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type         string  `json:"type"`
	JobID        string  `json:"jobId"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ProgressText string  `json:"progressText,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type    string   `json:"type"`
	JobID   string   `json:"jobId"`
	Outputs []string `json:"outputs"`
}

// WSErrorMessage represents a failed or cancelled job
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSTrackMessage announces a track materialised from a finished job
type WSTrackMessage struct {
	Type  string      `json:"type"`
	JobID string      `json:"jobId"`
	Track interface{} `json:"track"`
}
