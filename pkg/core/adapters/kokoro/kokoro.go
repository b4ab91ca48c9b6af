// Package kokoro adapts a Kokoro TTS inference server. Fixed multilingual
// voice catalogue, 24 kHz output, incremental synthesis supported.
package kokoro

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/adapters/enginehttp"
	"github.com/bragi-audio/bragi/pkg/core/audio"
)

const sampleRate = 24000

// streamBlock is the raw PCM read size while streaming, kept even so a
// 16-bit sample never straddles two chunks.
const streamBlock = 16384

var voices = []string{
	"af_heart", "af_alloy", "af_aoede", "af_bella", "af_jessica", "af_kore",
	"af_nicole", "af_nova", "af_river", "af_sarah", "af_sky",
	"am_adam", "am_echo", "am_eric", "am_fenrir", "am_liam", "am_michael",
	"am_onyx", "am_puck", "am_santa",
	"bf_alice", "bf_emma", "bf_isabella", "bf_lily",
	"bm_daniel", "bm_fable", "bm_george", "bm_lewis",
	"ef_dora",
	"em_alex", "em_santa",
	"ff_siwis",
	"hf_alpha", "hf_beta",
	"hm_omega", "hm_psi",
	"if_sara",
	"im_nicola",
	"jf_alpha", "jf_gongitsune", "jf_nezumi", "jf_tebukuro",
	"jm_beta", "jm_kumo",
	"pf_dora",
	"pm_alex", "pm_santa",
	"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao",
	"zm_yunjian", "zm_yunxi", "zm_yunyang",
}

// Detector wires this backend into the match table.
func Detector() adapters.Detector {
	return adapters.Detector{
		Name: "kokoro",
		Kind: adapters.KindTTS,
		Detect: func(cfg adapters.DetectConfig) bool {
			return strings.Contains(strings.ToLower(cfg.Repo), "kokoro")
		},
		NewTTS: func() adapters.TTSAdapter { return &Adapter{} },
	}
}

// Adapter drives one Kokoro server instance.
type Adapter struct {
	mu     sync.Mutex
	client *enginehttp.Client
	model  string
}

type synthesizeRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice"`
	Speed  float64 `json:"speed"`
	Stream bool    `json:"stream,omitempty"`
}

func (a *Adapter) Load(ctx context.Context, modelPath, device string, opts adapters.LoadOptions) error {
	if opts.Endpoint == "" {
		return fmt.Errorf("kokoro: no engine endpoint configured for %q", modelPath)
	}
	client := enginehttp.New(opts.Endpoint, opts.HTTPClient)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("kokoro: %w", err)
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

// SynthesizeRaw fetches raw engine PCM and decodes it to float, skipping
// the container round trip.
func (a *Adapter) SynthesizeRaw(ctx context.Context, text, voice string, speed float64) ([]float32, int, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, 0, fmt.Errorf("kokoro: adapter not loaded")
	}

	raw, err := client.PostJSONBytes(ctx, "/synthesize", synthesizeRequest{Text: text, Voice: voice, Speed: speed})
	if err != nil {
		return nil, 0, fmt.Errorf("kokoro: %w", err)
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

// SynthesizeStream pulls chunked raw PCM from the engine and re-encodes
// each block into the requested format.
func (a *Adapter) SynthesizeStream(ctx context.Context, text, voice string, speed float64, format string) (*adapters.SynthesisStream, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("kokoro: adapter not loaded")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	body, err := client.PostJSONStream(streamCtx, "/synthesize", synthesizeRequest{Text: text, Voice: voice, Speed: speed, Stream: true})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("kokoro: %w", err)
	}

	stream := adapters.NewSynthesisStream(cancel)
	go func() {
		defer body.Close()
		buf := make([]byte, streamBlock)
		for {
			n, readErr := io.ReadFull(body, buf)
			if n > 0 {
				// Drop a trailing odd byte rather than emit half a sample.
				n -= n % 2
				chunk, encErr := encodeChunk(streamCtx, buf[:n], format)
				if encErr != nil {
					stream.Finish(fmt.Errorf("kokoro: %w", encErr))
					return
				}
				if !stream.Send(streamCtx, chunk) {
					stream.Finish(streamCtx.Err())
					return
				}
			}
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				stream.Finish(nil)
				return
			}
			if readErr != nil {
				stream.Finish(fmt.Errorf("kokoro: %w", readErr))
				return
			}
		}
	}()
	return stream, nil
}

func (a *Adapter) SynthesizeWithReference(ctx context.Context, text string, referenceAudio []byte, transcript string, speed float64, format string) ([]byte, error) {
	a.mu.Lock()
	model := a.model
	a.mu.Unlock()
	return nil, adapters.ErrCloningNotSupported(model)
}

func (a *Adapter) AvailableVoices() []string {
	out := make([]string, len(voices))
	copy(out, voices)
	return out
}

func (a *Adapter) SampleRate() int            { return sampleRate }
func (a *Adapter) SupportsStreaming() bool    { return true }
func (a *Adapter) SupportsVoiceCloning() bool { return false }

func encodeChunk(ctx context.Context, raw []byte, format string) ([]byte, error) {
	if format == "pcm" {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	chunk, _, err := audio.Encode(ctx, audio.PCM16ToFloat(raw), sampleRate, format)
	return chunk, err
}
