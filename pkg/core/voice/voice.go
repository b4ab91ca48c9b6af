// Package voice carries the custom voice domain type and the synthesis
// orchestration that turns a speech request into encoded audio.
package voice

import (
	"context"
	"time"
)

// CustomVoice is a user-registered voice backed by a reference clip.
type CustomVoice struct {
	ID               string
	Name             string
	Transcript       string
	OriginalFilename string
	// AdapterAlias pins the voice to a cloning-capable model. Empty means
	// the voice was stored without a model binding.
	AdapterAlias string
	CreatedAt    time.Time
}

// Store is the persistence surface synthesis needs. The full CRUD store
// in the gateway satisfies it.
type Store interface {
	// GetByName returns nil with no error when the name is unknown.
	GetByName(ctx context.Context, name string) (*CustomVoice, error)
	ReferenceAudio(ctx context.Context, id string) ([]byte, error)
}
