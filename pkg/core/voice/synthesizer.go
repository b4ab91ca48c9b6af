package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/audio"
	"github.com/bragi-audio/bragi/pkg/core/registry"
)

// ErrStreamingUnavailable tells the caller to fall back to buffered
// synthesis: the resolved adapter cannot stream, or the request needs a
// reference clip, which only the buffered path carries.
var ErrStreamingUnavailable = errors.New("streaming unavailable for this request")

// Request is one synthesis job after HTTP validation.
type Request struct {
	Input  string
	Model  string // optional explicit model alias
	Voice  string
	Speed  float64
	Format string
}

// Synthesizer resolves a request to an adapter and drives it chunk by
// chunk. Long inputs are split at sentence boundaries so engines with
// tight input windows still produce complete audio.
type Synthesizer struct {
	Registry *registry.Registry
	Voices   Store
}

type resolution struct {
	alias   string
	adapter adapters.TTSAdapter
	custom  *CustomVoice
}

// resolve applies the precedence order: explicit model, then the custom
// voice's pinned model, then the built-in voice projection.
func (s *Synthesizer) resolve(ctx context.Context, req Request) (resolution, error) {
	custom, err := s.Voices.GetByName(ctx, req.Voice)
	if err != nil {
		return resolution{}, fmt.Errorf("voice lookup: %w", err)
	}

	switch {
	case req.Model != "":
		if !s.Registry.HasModel(req.Model) {
			return resolution{}, core.NewInvalidModelError(req.Model)
		}
		adapter, err := s.Registry.GetTTS(req.Model)
		if err != nil {
			// Known alias without a live TTS adapter: loaded as STT or
			// failed at startup.
			return resolution{}, core.NewModelNotLoadedError(req.Model)
		}
		return resolution{alias: req.Model, adapter: adapter, custom: custom}, nil

	case custom != nil && custom.AdapterAlias != "":
		adapter, err := s.Registry.GetTTS(custom.AdapterAlias)
		if err != nil {
			return resolution{}, core.NewModelNotLoadedError(custom.AdapterAlias)
		}
		return resolution{alias: custom.AdapterAlias, adapter: adapter, custom: custom}, nil

	default:
		alias, adapter, err := s.Registry.GetTTSByVoice(req.Voice)
		if err != nil {
			return resolution{}, err
		}
		return resolution{alias: alias, adapter: adapter, custom: custom}, nil
	}
}

func checkVoiceName(adapter adapters.TTSAdapter, voice string) error {
	available := adapter.AvailableVoices()
	if len(available) == 0 {
		return nil
	}
	for _, v := range available {
		if v == voice {
			return nil
		}
	}
	return core.NewInvalidVoiceError(voice)
}

// Synthesize produces one complete encoded clip. Returns the audio bytes
// and their content type.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) ([]byte, string, error) {
	res, err := s.resolve(ctx, req)
	if err != nil {
		return nil, "", err
	}

	chunks := audio.ChunkText(req.Input, audio.MaxChunkChars)

	var (
		pcm  []float32
		rate int
	)
	if res.custom != nil {
		ref, err := s.Voices.ReferenceAudio(ctx, res.custom.ID)
		if err != nil {
			return nil, "", fmt.Errorf("reference audio: %w", err)
		}
		for _, chunk := range chunks {
			part, sr, err := adapters.SynthesizeRawWithReference(ctx, res.adapter, chunk, ref, res.custom.Transcript, req.Speed)
			if err != nil {
				return nil, "", err
			}
			if rate != 0 && sr != rate {
				return nil, "", fmt.Errorf("adapter %s changed sample rate mid-request: %d then %d", res.alias, rate, sr)
			}
			rate = sr
			pcm = append(pcm, part...)
		}
	} else {
		if err := checkVoiceName(res.adapter, req.Voice); err != nil {
			return nil, "", err
		}
		for _, chunk := range chunks {
			part, sr, err := adapters.SynthesizeRaw(ctx, res.adapter, chunk, req.Voice, req.Speed)
			if err != nil {
				return nil, "", err
			}
			if rate != 0 && sr != rate {
				return nil, "", fmt.Errorf("adapter %s changed sample rate mid-request: %d then %d", res.alias, rate, sr)
			}
			rate = sr
			pcm = append(pcm, part...)
		}
	}
	if rate == 0 {
		rate = res.adapter.SampleRate()
	}

	return audio.Encode(ctx, pcm, rate, req.Format)
}

// Stream produces encoded chunks incrementally. Requests the buffered
// path must serve, custom voices and non-streaming adapters, get
// ErrStreamingUnavailable so the caller can fall back.
func (s *Synthesizer) Stream(ctx context.Context, req Request) (*adapters.SynthesisStream, string, error) {
	res, err := s.resolve(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if res.custom != nil || !res.adapter.SupportsStreaming() {
		return nil, "", ErrStreamingUnavailable
	}
	if err := checkVoiceName(res.adapter, req.Voice); err != nil {
		return nil, "", err
	}

	stream, err := res.adapter.SynthesizeStream(ctx, req.Input, req.Voice, req.Speed, req.Format)
	if err != nil {
		return nil, "", err
	}
	contentType := audio.ContentTypes[req.Format]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return stream, contentType, nil
}
