package dto

import "github.com/phorium/phorium/internal/model"

// GenerateTextRequest is the body of POST /api/generate/text.
type GenerateTextRequest struct {
	UserID   string   `json:"user_id"`
	Product  string   `json:"product"`
	Tone     string   `json:"tone,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// GenerateImageRequest is the body of POST /api/generate/image.
type GenerateImageRequest struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
}

// GenerationResponse reports a finished generation and the balance after paying for it.
type GenerationResponse struct {
	OK            bool   `json:"ok"`
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Text          string `json:"text,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	ImageB64      string `json:"image_b64,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Cost          int64  `json:"cost"`
	Balance       int64  `json:"balance"`
}

// GenerationListResponse lists past generations.
type GenerationListResponse struct {
	OK          bool                `json:"ok"`
	UserID      string              `json:"user_id"`
	Generations []*model.Generation `json:"generations"`
}
