// Package handlers implements the HTTP surface: the OpenAI-compatible
// audio endpoints under /v1, voice and key administration, and probes.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bragi-audio/bragi/pkg/core/registry"
	"github.com/bragi-audio/bragi/pkg/core/voice"
	"github.com/bragi-audio/bragi/pkg/gateway/apierror"
	"github.com/bragi-audio/bragi/pkg/gateway/lifecycle"
	"github.com/bragi-audio/bragi/pkg/gateway/mw"
	"github.com/bragi-audio/bragi/pkg/gateway/store"
)

// KeyAdmin is the key management surface of the store.
type KeyAdmin interface {
	CreateKey(ctx context.Context, name string) (*store.APIKey, string, error)
	ListKeys(ctx context.Context) ([]*store.APIKey, error)
	DeleteKey(ctx context.Context, id string) (bool, error)
}

// VoiceAdmin is the custom voice surface of the store.
type VoiceAdmin interface {
	voice.Store
	CreateVoice(ctx context.Context, name, transcript string, audioData []byte, originalFilename, adapterAlias string) (*voice.CustomVoice, error)
	GetVoiceByID(ctx context.Context, id string) (*voice.CustomVoice, error)
	ListVoices(ctx context.Context) ([]*voice.CustomVoice, error)
	DeleteVoice(ctx context.Context, id string) (bool, error)
}

// Handlers bundles the dependencies every endpoint shares.
type Handlers struct {
	Logger      *slog.Logger
	Registry    *registry.Registry
	Synth       *voice.Synthesizer
	Keys        KeyAdmin
	Voices      VoiceAdmin
	Life        *lifecycle.Lifecycle
	MaxFileSize int64
	// MaxFileSizeLabel is the configured string ("25MB") echoed in the
	// file_too_large message.
	MaxFileSizeLabel string
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	wireErr, status := apierror.FromError(err, reqID)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("request failed", "error", err, "request_id", reqID, "path", r.URL.Path)
	}
	apierror.Write(w, status, wireErr)
}

func requestID(r *http.Request) (string, bool) {
	return mw.RequestIDFrom(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
