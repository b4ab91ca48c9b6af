// Package adapters defines the capability contract every speech backend
// satisfies. The registry and the orchestration layer dispatch purely
// through these interfaces and never branch on a concrete backend.
package adapters

import (
	"context"
	"net/http"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/audio"
)

// LoadOptions carries engine wiring for Load. HTTP-backed adapters need an
// endpoint; local-process adapters need a binary path.
type LoadOptions struct {
	// Endpoint is the base URL of the external inference engine serving
	// this model, for HTTP-backed adapters.
	Endpoint string
	// ComputeType is an engine-specific precision hint (e.g. "int8").
	ComputeType string
	// BinaryPath overrides the executable used by subprocess adapters.
	BinaryPath string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// TranscribeOptions configures a transcription call.
type TranscribeOptions struct {
	Language       string
	Temperature    float64
	WordTimestamps bool
}

// Word is a transcribed word with timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a timed piece of a transcription.
type Segment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens,omitempty"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

// TranscriptResult is produced fresh per transcription call.
type TranscriptResult struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
	Words    []Word
}

// STTAdapter wraps one speech-to-text inference engine.
type STTAdapter interface {
	Load(ctx context.Context, modelPath, device string, opts LoadOptions) error
	Unload() error

	// Transcribe consumes canonical mono float PCM at 16 kHz.
	Transcribe(ctx context.Context, pcm []float32, opts TranscribeOptions) (*TranscriptResult, error)
	// Translate transcribes into English. Adapters without translation
	// support return an unsupported_feature error, never a silent no-op.
	Translate(ctx context.Context, pcm []float32, temperature float64) (*TranscriptResult, error)

	SupportedLanguages() []string
	SampleRate() int
	SupportsTranslation() bool
	SupportsStreaming() bool
}

// TTSAdapter wraps one text-to-speech inference engine.
type TTSAdapter interface {
	Load(ctx context.Context, modelPath, device string, opts LoadOptions) error
	Unload() error

	// Synthesize returns audio encoded in the requested output format.
	Synthesize(ctx context.Context, text, voice string, speed float64, format string) ([]byte, error)
	// SynthesizeStream produces encoded chunks incrementally. The stream
	// is finite and not restartable.
	SynthesizeStream(ctx context.Context, text, voice string, speed float64, format string) (*SynthesisStream, error)
	// SynthesizeWithReference clones the voice of a reference clip.
	// Adapters without cloning support return a voice_cloning_not_supported
	// error.
	SynthesizeWithReference(ctx context.Context, text string, referenceAudio []byte, transcript string, speed float64, format string) ([]byte, error)

	// AvailableVoices returns the built-in voice names. Empty means any
	// voice name is accepted.
	AvailableVoices() []string
	SampleRate() int
	SupportsStreaming() bool
	SupportsVoiceCloning() bool
}

// RawSynthesizer is an optional fast path for adapters with native float
// output, skipping the encode/decode round trip of SynthesizeRaw.
type RawSynthesizer interface {
	SynthesizeRaw(ctx context.Context, text, voice string, speed float64) ([]float32, int, error)
}

// RawReferenceSynthesizer is the cloning variant of RawSynthesizer.
type RawReferenceSynthesizer interface {
	SynthesizeRawWithReference(ctx context.Context, text string, referenceAudio []byte, transcript string, speed float64) ([]float32, int, error)
}

// SynthesizeRaw returns decoded float PCM and its sample rate. It is
// derived from Synthesize with the pcm format unless the adapter provides
// a native float path.
func SynthesizeRaw(ctx context.Context, a TTSAdapter, text, voice string, speed float64) ([]float32, int, error) {
	if raw, ok := a.(RawSynthesizer); ok {
		return raw.SynthesizeRaw(ctx, text, voice, speed)
	}
	data, err := a.Synthesize(ctx, text, voice, speed, "pcm")
	if err != nil {
		return nil, 0, err
	}
	return audio.PCM16ToFloat(data), a.SampleRate(), nil
}

// SynthesizeRawWithReference is the reference-audio variant of
// SynthesizeRaw.
func SynthesizeRawWithReference(ctx context.Context, a TTSAdapter, text string, referenceAudio []byte, transcript string, speed float64) ([]float32, int, error) {
	if raw, ok := a.(RawReferenceSynthesizer); ok {
		return raw.SynthesizeRawWithReference(ctx, text, referenceAudio, transcript, speed)
	}
	data, err := a.SynthesizeWithReference(ctx, text, referenceAudio, transcript, speed, "pcm")
	if err != nil {
		return nil, 0, err
	}
	return audio.PCM16ToFloat(data), a.SampleRate(), nil
}

// ErrTranslationNotSupported builds the capability-gating error an STT
// adapter returns from Translate when SupportsTranslation is false.
func ErrTranslationNotSupported(model string) error {
	return core.NewUnsupportedFeatureError("translation", model)
}

// ErrCloningNotSupported builds the capability-gating error a TTS adapter
// returns from SynthesizeWithReference when SupportsVoiceCloning is false.
func ErrCloningNotSupported(model string) error {
	return core.NewVoiceCloningNotSupportedError(model)
}

// ErrStreamingNotSupported builds the error returned by SynthesizeStream
// on adapters without incremental output.
func ErrStreamingNotSupported(model string) error {
	return core.NewUnsupportedFeatureError("streaming", model)
}
