package model

// SongDetails holds the parameters of one generation request
type SongDetails struct {
	Title    string   `json:"title,omitempty" validate:"omitempty,max=120"`
	Style    string   `json:"style,omitempty" validate:"omitempty,max=500"`
	Lyrics   string   `json:"lyrics" validate:"required,min=1,max=5000"`
	Genre    string   `json:"genre,omitempty" validate:"omitempty,max=64"`
	Mood     string   `json:"mood,omitempty" validate:"omitempty,max=64"`
	Tempo    string   `json:"tempo,omitempty" validate:"omitempty,max=32"`
	Language Language `json:"language,omitempty" validate:"omitempty,oneof=en tr fr es de it pt ja ko"`
	Vocals   Vocals   `json:"vocals,omitempty" validate:"omitempty,oneof=male female duet choir instrumental"`
}

// Instrumental reports whether the song should be rendered without vocals
func (d SongDetails) Instrumental() bool {
	return d.Vocals == VocalsInstrumental
}

// DisplayTitle returns the title or a placeholder
func (d SongDetails) DisplayTitle() string {
	if d.Title == "" {
		return "Untitled"
	}
	return d.Title
}

// GenerationStartResponse is returned when a generation job is admitted
type GenerationStartResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// GenerationCancelResponse is returned by the cancel endpoints
type GenerationCancelResponse struct {
	Success   bool     `json:"success"`
	Cancelled []string `json:"cancelled"`
}

// CompletedJobResponse is returned when draining the completion queue
type CompletedJobResponse struct {
	JobID string `json:"jobId"`
}
