// Package whispercpp adapts a whisper.cpp inference server. It is the
// broad speech-to-text fallback: the detector claims anything mentioning
// whisper plus the bare model size names, so it registers after the more
// specific STT backends.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/adapters/enginehttp"
	"github.com/bragi-audio/bragi/pkg/core/audio"
)

var modelSizes = map[string]bool{
	"tiny": true, "tiny.en": true, "base": true, "base.en": true,
	"small": true, "small.en": true, "medium": true, "medium.en": true,
	"large": true, "large-v1": true, "large-v2": true, "large-v3": true,
	"large-v3-turbo": true, "turbo": true,
	"distil-large-v2": true, "distil-large-v3": true,
	"distil-medium.en": true, "distil-small.en": true,
}

var languages = []string{
	"af", "am", "ar", "as", "az", "ba", "be", "bg", "bn", "bo", "br", "bs",
	"ca", "cs", "cy", "da", "de", "el", "en", "es", "et", "eu", "fa", "fi",
	"fo", "fr", "gl", "gu", "ha", "haw", "he", "hi", "hr", "ht", "hu", "hy",
	"id", "is", "it", "ja", "jw", "ka", "kk", "km", "kn", "ko", "la", "lb",
	"ln", "lo", "lt", "lv", "mg", "mi", "mk", "ml", "mn", "mr", "ms", "mt",
	"my", "ne", "nl", "nn", "no", "oc", "pa", "pl", "ps", "pt", "ro", "ru",
	"sa", "sd", "si", "sk", "sl", "sn", "so", "sq", "sr", "su", "sv", "sw",
	"ta", "te", "tg", "th", "tk", "tl", "tr", "tt", "uk", "ur", "uz", "vi",
	"yi", "yo", "yue", "zh",
}

// Detector wires this backend into the match table.
func Detector() adapters.Detector {
	return adapters.Detector{
		Name: "whispercpp",
		Kind: adapters.KindSTT,
		Detect: func(cfg adapters.DetectConfig) bool {
			repo := strings.ToLower(cfg.Repo)
			return strings.Contains(repo, "whisper") || modelSizes[repo]
		},
		NewSTT: func() adapters.STTAdapter { return &Adapter{} },
	}
}

// Adapter drives one whisper.cpp server instance.
type Adapter struct {
	mu     sync.Mutex
	client *enginehttp.Client
	model  string
}

type inferenceResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID               int     `json:"id"`
		Start            float64 `json:"start"`
		End              float64 `json:"end"`
		Text             string  `json:"text"`
		Tokens           []int   `json:"tokens"`
		Temperature      float64 `json:"temperature"`
		AvgLogprob       float64 `json:"avg_logprob"`
		CompressionRatio float64 `json:"compression_ratio"`
		NoSpeechProb     float64 `json:"no_speech_prob"`
		Words            []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

func (a *Adapter) Load(ctx context.Context, modelPath, device string, opts adapters.LoadOptions) error {
	if opts.Endpoint == "" {
		return fmt.Errorf("whispercpp: no engine endpoint configured for %q", modelPath)
	}
	client := enginehttp.New(opts.Endpoint, opts.HTTPClient)
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("whispercpp: %w", err)
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
	return a.run(ctx, pcm, opts.Language, opts.Temperature, opts.WordTimestamps, false)
}

func (a *Adapter) Translate(ctx context.Context, pcm []float32, temperature float64) (*adapters.TranscriptResult, error) {
	return a.run(ctx, pcm, "", temperature, false, true)
}

func (a *Adapter) run(ctx context.Context, pcm []float32, language string, temperature float64, wordTimestamps, translate bool) (*adapters.TranscriptResult, error) {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("whispercpp: adapter not loaded")
	}

	wav, _, err := audio.Encode(ctx, pcm, audio.TargetSampleRate, "wav")
	if err != nil {
		return nil, fmt.Errorf("whispercpp: %w", err)
	}

	fields := map[string]string{
		"temperature":     strconv.FormatFloat(temperature, 'f', -1, 64),
		"response_format": "verbose_json",
		"word_timestamps": strconv.FormatBool(wordTimestamps),
		"translate":       strconv.FormatBool(translate),
	}
	if language != "" {
		fields["language"] = language
	}

	raw, err := client.PostMultipart(ctx, "/inference", fields, "file", "audio.wav", wav)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: %w", err)
	}
	var resp inferenceResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("whispercpp: %w", err)
	}

	result := &adapters.TranscriptResult{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}
	var parts []string
	for _, s := range resp.Segments {
		result.Segments = append(result.Segments, adapters.Segment{
			ID:               s.ID,
			Start:            s.Start,
			End:              s.End,
			Text:             s.Text,
			Tokens:           s.Tokens,
			Temperature:      s.Temperature,
			AvgLogprob:       s.AvgLogprob,
			CompressionRatio: s.CompressionRatio,
			NoSpeechProb:     s.NoSpeechProb,
		})
		parts = append(parts, strings.TrimSpace(s.Text))
		if wordTimestamps {
			for _, w := range s.Words {
				result.Words = append(result.Words, adapters.Word{Word: w.Word, Start: w.Start, End: w.End})
			}
		}
	}
	if result.Text == "" && len(parts) > 0 {
		result.Text = strings.Join(parts, " ")
	}
	return result, nil
}

func (a *Adapter) SupportedLanguages() []string { return languages }
func (a *Adapter) SampleRate() int              { return audio.TargetSampleRate }
func (a *Adapter) SupportsTranslation() bool    { return true }
func (a *Adapter) SupportsStreaming() bool      { return false }
