package model

// CoverGenerateRequest represents the request body for POST /api/covers
type CoverGenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,min=3,max=1000"`
	Count  int    `json:"count" validate:"omitempty,min=1,max=4"`
}

// CoverGenerateResponse lists the generated image URLs
type CoverGenerateResponse struct {
	Images []string `json:"images"`
}

// ApplyCoverRequest represents the request body for PUT /api/tracks/:id/cover
type ApplyCoverRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,url"`
}
