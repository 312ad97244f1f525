package model

import "time"

// GenerationKind is the type of generated asset.
type GenerationKind string

const (
	GenerationText  GenerationKind = "text"
	GenerationImage GenerationKind = "image"
)

// GenerationStatus is the outcome of a generation.
type GenerationStatus string

const (
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// Generation records one paid call to a generation provider.
type Generation struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Kind       GenerationKind   `json:"kind"`
	Prompt     string           `json:"prompt"`
	Output     string           `json:"output,omitempty"`
	Cost       int64            `json:"cost"`
	TokensUsed int              `json:"tokens_used,omitempty"`
	Status     GenerationStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}
