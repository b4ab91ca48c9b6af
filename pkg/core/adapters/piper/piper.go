// Package piper adapts the Piper TTS binary as a local subprocess. Text
// goes in on stdin, raw 16-bit PCM comes out on stdout.
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/audio"
)

const defaultSampleRate = 22050

const streamBlock = 8192

// Detector wires this backend into the match table.
func Detector() adapters.Detector {
	return adapters.Detector{
		Name: "piper",
		Kind: adapters.KindTTS,
		Detect: func(cfg adapters.DetectConfig) bool {
			return strings.Contains(strings.ToLower(cfg.Repo), "piper")
		},
		NewTTS: func() adapters.TTSAdapter { return &Adapter{} },
	}
}

// Adapter runs the piper binary once per synthesis call.
type Adapter struct {
	mu         sync.Mutex
	binaryPath string
	modelPath  string
	sampleRate int
}

func (a *Adapter) Load(ctx context.Context, modelPath, device string, opts adapters.LoadOptions) error {
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("piper: model file: %w", err)
	}
	binary := opts.BinaryPath
	if binary == "" {
		binary = "piper"
	}

	a.mu.Lock()
	a.binaryPath = binary
	a.modelPath = modelPath
	a.sampleRate = sidecarSampleRate(modelPath)
	a.mu.Unlock()
	return nil
}

// sidecarSampleRate reads the rate from the model's companion JSON config,
// falling back to piper's usual 22050.
func sidecarSampleRate(modelPath string) int {
	data, err := os.ReadFile(modelPath + ".json")
	if err != nil {
		return defaultSampleRate
	}
	var cfg struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate <= 0 {
		return defaultSampleRate
	}
	return cfg.Audio.SampleRate
}

func (a *Adapter) Unload() error {
	a.mu.Lock()
	a.modelPath = ""
	a.mu.Unlock()
	return nil
}

func (a *Adapter) command(ctx context.Context, speed float64) (*exec.Cmd, int, error) {
	a.mu.Lock()
	binary, model, rate := a.binaryPath, a.modelPath, a.sampleRate
	a.mu.Unlock()
	if model == "" {
		return nil, 0, fmt.Errorf("piper: adapter not loaded")
	}

	// Piper scales duration, so speed inverts into length-scale.
	cmd := exec.CommandContext(ctx, binary,
		"--model", model,
		"--output-raw",
		"--length-scale", strconv.FormatFloat(1.0/speed, 'f', -1, 64),
	)
	return cmd, rate, nil
}

// SynthesizeRaw runs the binary to completion and converts its PCM output.
func (a *Adapter) SynthesizeRaw(ctx context.Context, text, voice string, speed float64) ([]float32, int, error) {
	cmd, rate, err := a.command(ctx, speed)
	if err != nil {
		return nil, 0, err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return audio.PCM16ToFloat(stdout.Bytes()), rate, nil
}

func (a *Adapter) Synthesize(ctx context.Context, text, voice string, speed float64, format string) ([]byte, error) {
	pcm, rate, err := a.SynthesizeRaw(ctx, text, voice, speed)
	if err != nil {
		return nil, err
	}
	out, _, err := audio.Encode(ctx, pcm, rate, format)
	return out, err
}

// SynthesizeStream forwards stdout blocks as they appear instead of
// waiting for the process to finish.
func (a *Adapter) SynthesizeStream(ctx context.Context, text, voice string, speed float64, format string) (*adapters.SynthesisStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	cmd, rate, err := a.command(streamCtx, speed)
	if err != nil {
		cancel()
		return nil, err
	}

	var stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("piper: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("piper: %w", err)
	}

	stream := adapters.NewSynthesisStream(cancel)
	go func() {
		buf := make([]byte, streamBlock)
		for {
			n, readErr := io.ReadFull(stdout, buf)
			if n > 0 {
				n -= n % 2
				var chunk []byte
				if format == "pcm" {
					chunk = append(chunk, buf[:n]...)
				} else {
					var encErr error
					chunk, _, encErr = audio.Encode(streamCtx, audio.PCM16ToFloat(buf[:n]), rate, format)
					if encErr != nil {
						cmd.Wait()
						stream.Finish(fmt.Errorf("piper: %w", encErr))
						return
					}
				}
				if !stream.Send(streamCtx, chunk) {
					cmd.Wait()
					stream.Finish(streamCtx.Err())
					return
				}
			}
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				if waitErr := cmd.Wait(); waitErr != nil {
					stream.Finish(fmt.Errorf("piper: %w: %s", waitErr, strings.TrimSpace(stderr.String())))
					return
				}
				stream.Finish(nil)
				return
			}
			if readErr != nil {
				cmd.Wait()
				stream.Finish(fmt.Errorf("piper: %w", readErr))
				return
			}
		}
	}()
	return stream, nil
}

func (a *Adapter) SynthesizeWithReference(ctx context.Context, text string, referenceAudio []byte, transcript string, speed float64, format string) ([]byte, error) {
	a.mu.Lock()
	model := a.modelPath
	a.mu.Unlock()
	return nil, adapters.ErrCloningNotSupported(model)
}

func (a *Adapter) AvailableVoices() []string { return []string{"default"} }

func (a *Adapter) SampleRate() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sampleRate == 0 {
		return defaultSampleRate
	}
	return a.sampleRate
}

func (a *Adapter) SupportsStreaming() bool    { return true }
func (a *Adapter) SupportsVoiceCloning() bool { return false }
