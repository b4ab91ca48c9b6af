// Package moonshine adapts a Moonshine ONNX inference server. English
// only, no translation, plain text out.
package moonshine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/adapters/enginehttp"
	"github.com/bragi-audio/bragi/pkg/core/audio"
)

// Detector wires this backend into the match table.
func Detector() adapters.Detector {
	return adapters.Detector{
		Name: "moonshine",
		Kind: adapters.KindSTT,
		Detect: func(cfg adapters.DetectConfig) bool {
			return strings.Contains(strings.ToLower(cfg.Repo), "moonshine")
		},
		NewSTT: func() adapters.STTAdapter { return &Adapter{} },
	}
}

// Adapter drives one Moonshine server instance.
type Adapter struct {
	mu     sync.Mutex
	client *enginehttp.Client
	model  string
}

func (a *Adapter) Load(ctx context.Context, modelPath, device string, opts adapters.LoadOptions) error {
	if opts.Endpoint == "" {
		return fmt.Errorf("moonshine: no engine endpoint configured for %q", modelPath)
	}
	client := enginehttp.New(opts.Endpoint, opts.HTTPClient)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("moonshine: %w", err)
	}

	a.mu.Lock()
	a.client = client
	a.model = modelPath
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Unload() error {
	a.mu.Lock()
	a.client = nil
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Transcribe(ctx context.Context, pcm []float32, opts adapters.TranscribeOptions) (*adapters.TranscriptResult, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("moonshine: adapter not loaded")
	}

	wav, _, err := audio.Encode(ctx, pcm, audio.TargetSampleRate, "wav")
	if err != nil {
		return nil, fmt.Errorf("moonshine: %w", err)
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := client.PostBytes(ctx, "/transcribe", "audio/wav", wav, &resp); err != nil {
		return nil, fmt.Errorf("moonshine: %w", err)
	}

	duration := float64(len(pcm)) / float64(audio.TargetSampleRate)
	result := &adapters.TranscriptResult{
		Text:     resp.Text,
		Language: "en",
		Duration: duration,
	}
	if resp.Text != "" {
		result.Segments = []adapters.Segment{{ID: 0, Start: 0, End: duration, Text: resp.Text}}
	}
	return result, nil
}

func (a *Adapter) Translate(ctx context.Context, pcm []float32, temperature float64) (*adapters.TranscriptResult, error) {
	a.mu.Lock()
	model := a.model
	a.mu.Unlock()
	return nil, adapters.ErrTranslationNotSupported(model)
}

func (a *Adapter) SupportedLanguages() []string { return []string{"en"} }
func (a *Adapter) SampleRate() int              { return audio.TargetSampleRate }
func (a *Adapter) SupportsTranslation() bool    { return false }
func (a *Adapter) SupportsStreaming() bool      { return false }
