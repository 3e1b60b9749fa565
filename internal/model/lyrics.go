package model

// AlignedWord is one lyric word with its position in the audio, in seconds
type AlignedWord struct {
	Word    string  `json:"word"`
	StartS  float64 `json:"startS"`
	EndS    float64 `json:"endS"`
	Success bool    `json:"success"`
	PAlign  float64 `json:"palign,omitempty"`
}

// TrackLyricsResponse represents the response for GET /api/tracks/:id/lyrics
type TrackLyricsResponse struct {
	TrackID string        `json:"trackId"`
	Lyrics  string        `json:"lyrics"`
	Words   []AlignedWord `json:"words"`
}
