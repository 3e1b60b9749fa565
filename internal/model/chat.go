package model

// ChatMessage is one turn of the assistant conversation
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,min=1,max=8000"`
}

// ChatRequest represents the request body for POST /api/chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

// ChatResponse carries the assistant reply and an optional song request
// extracted from it
type ChatResponse struct {
	Reply       string       `json:"reply"`
	SongRequest *SongDetails `json:"songRequest,omitempty"`
}
