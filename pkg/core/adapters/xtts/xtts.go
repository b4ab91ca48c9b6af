// Package xtts adapts a Coqui XTTS inference server, the only backend
// with reference-audio voice cloning.
package xtts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/adapters/enginehttp"
	"github.com/bragi-audio/bragi/pkg/core/audio"
)

const sampleRate = 24000

// Detector wires this backend into the match table.
func Detector() adapters.Detector {
	return adapters.Detector{
		Name: "xtts",
		Kind: adapters.KindTTS,
		Detect: func(cfg adapters.DetectConfig) bool {
			repo := strings.ToLower(cfg.Repo)
			return strings.Contains(repo, "xtts") || strings.Contains(repo, "coqui")
		},
		NewTTS: func() adapters.TTSAdapter { return &Adapter{} },
	}
}

// Adapter drives one XTTS server instance.
type Adapter struct {
	mu       sync.Mutex
	client   *enginehttp.Client
	model    string
	speakers []string
}

type ttsRequest struct {
	Text     string  `json:"text"`
	Speaker  string  `json:"speaker"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed"`
}

func (a *Adapter) Load(ctx context.Context, modelPath, device string, opts adapters.LoadOptions) error {
	if opts.Endpoint == "" {
		return fmt.Errorf("xtts: no engine endpoint configured for %q", modelPath)
	}
	client := enginehttp.New(opts.Endpoint, opts.HTTPClient)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("xtts: %w", err)
	}

	// Speaker discovery is best effort. An empty list means callers may
	// pass any voice name through to the engine.
	var speakers struct {
		Speakers []string `json:"speakers"`
	}
	if err := client.GetJSON(ctx, "/speakers", &speakers); err != nil {
		speakers.Speakers = nil
	}

	a.mu.Lock()
	a.client = client
	a.model = modelPath
	a.speakers = speakers.Speakers
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Unload() error {
	a.mu.Lock()
	a.client = nil
	a.speakers = nil
	a.mu.Unlock()
	return nil
}

// SynthesizeRaw fetches raw engine PCM and decodes it to float.
func (a *Adapter) SynthesizeRaw(ctx context.Context, text, voice string, speed float64) ([]float32, int, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, 0, fmt.Errorf("xtts: adapter not loaded")
	}

	raw, err := client.PostJSONBytes(ctx, "/tts", ttsRequest{Text: text, Speaker: voice, Language: "en", Speed: speed})
	if err != nil {
		return nil, 0, fmt.Errorf("xtts: %w", err)
	}
	return audio.PCM16ToFloat(raw), sampleRate, nil
}

func (a *Adapter) Synthesize(ctx context.Context, text, voice string, speed float64, format string) ([]byte, error) {
	pcm, sr, err := a.SynthesizeRaw(ctx, text, voice, speed)
	if err != nil {
		return nil, err
	}
	out, _, err := audio.Encode(ctx, pcm, sr, format)
	return out, err
}

func (a *Adapter) SynthesizeStream(ctx context.Context, text, voice string, speed float64, format string) (*adapters.SynthesisStream, error) {
	a.mu.Lock()
	model := a.model
	a.mu.Unlock()
	return nil, adapters.ErrStreamingNotSupported(model)
}

// SynthesizeRawWithReference clones the reference clip's voice and returns
// raw float PCM.
func (a *Adapter) SynthesizeRawWithReference(ctx context.Context, text string, referenceAudio []byte, transcript string, speed float64) ([]float32, int, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, 0, fmt.Errorf("xtts: adapter not loaded")
	}

	fields := map[string]string{
		"text":       text,
		"transcript": transcript,
		"language":   "en",
		"speed":      strconv.FormatFloat(speed, 'f', -1, 64),
	}
	raw, err := client.PostMultipart(ctx, "/tts_with_reference", fields, "reference", "reference.wav", referenceAudio)
	if err != nil {
		return nil, 0, fmt.Errorf("xtts: %w", err)
	}
	return audio.PCM16ToFloat(raw), sampleRate, nil
}

func (a *Adapter) SynthesizeWithReference(ctx context.Context, text string, referenceAudio []byte, transcript string, speed float64, format string) ([]byte, error) {
	pcm, sr, err := a.SynthesizeRawWithReference(ctx, text, referenceAudio, transcript, speed)
	if err != nil {
		return nil, err
	}
	out, _, err := audio.Encode(ctx, pcm, sr, format)
	return out, err
}

func (a *Adapter) AvailableVoices() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.speakers))
	copy(out, a.speakers)
	return out
}

func (a *Adapter) SampleRate() int            { return sampleRate }
func (a *Adapter) SupportsStreaming() bool    { return false }
func (a *Adapter) SupportsVoiceCloning() bool { return true }
