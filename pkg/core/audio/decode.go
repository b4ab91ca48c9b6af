package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// TargetSampleRate is the canonical PCM rate every decoded input is
// normalized to before it reaches an STT adapter.
const TargetSampleRate = 16000

// ErrUnsupportedFormat marks a format outside the supported input set.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// nativeFormats decode in-process; transcodeFormats go through ffmpeg.
var (
	nativeFormats    = map[string]bool{"wav": true, "flac": true, "ogg": true}
	transcodeFormats = map[string]bool{"mp3": true, "mp4": true, "m4a": true, "webm": true}
)

// extensionMap resolves a filename extension to its canonical format.
var extensionMap = map[string]string{
	"flac": "flac",
	"mp3":  "mp3",
	"mp4":  "mp4",
	"mpeg": "mp3",
	"mpga": "mp3",
	"m4a":  "m4a",
	"ogg":  "ogg",
	"wav":  "wav",
	"webm": "webm",
}

// SupportedInputFormats lists the canonical decode formats, for error
// messages and validation.
func SupportedInputFormats() []string {
	return []string{"flac", "m4a", "mp3", "mp4", "ogg", "wav", "webm"}
}

// formatFromFilename maps an extension hint to a canonical format. Empty
// string means "unknown, sniff it"; an error means the extension is known
// to be unsupported.
func formatFromFilename(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", nil
	}
	format, ok := extensionMap[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// Decode converts arbitrary client-submitted audio into canonical mono
// float32 PCM at 16 kHz. The filename is an optional extension hint; with
// no hint the native container path is sniffed first and ffmpeg is the
// fallback.
func Decode(ctx context.Context, data []byte, filename string) ([]float32, error) {
	format, err := formatFromFilename(filename)
	if err != nil {
		return nil, err
	}

	var (
		samples  []float32
		channels int
		rate     int
	)
	decoded := false

	if format == "" || nativeFormats[format] {
		samples, channels, rate, err = decodeNative(data)
		if err == nil {
			decoded = true
		} else if nativeFormats[format] {
			// The caller claimed a native format and it did not parse.
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
	}

	if !decoded {
		hint := format
		if hint == "" {
			hint = "mp3"
		}
		samples, channels, rate, err = decodeFFmpeg(ctx, data, hint)
		if err != nil {
			return nil, fmt.Errorf("decode audio: %w", err)
		}
	}

	samples = downmix(samples, channels)
	samples = Resample(samples, rate, TargetSampleRate)
	return samples, nil
}

// decodeNative tries the in-process container decoders: wav, flac, ogg.
func decodeNative(data []byte) ([]float32, int, int, error) {
	if samples, channels, rate, err := decodeWAV(data); err == nil {
		return samples, channels, rate, nil
	} else if !errors.Is(err, errNotWAV) {
		return nil, 0, 0, err
	}

	if bytes.HasPrefix(data, []byte("fLaC")) {
		return decodeFLAC(data)
	}
	if bytes.HasPrefix(data, []byte("OggS")) {
		return decodeOgg(data)
	}
	return nil, 0, 0, errors.New("no native container signature")
}

func decodeFLAC(data []byte) ([]float32, int, int, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("flac: %w", err)
	}

	channels := int(stream.Info.NChannels)
	rate := int(stream.Info.SampleRate)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	var samples []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("flac frame: %w", err)
		}
		blockSize := len(frame.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			for _, sub := range frame.Subframes {
				samples = append(samples, float32(sub.Samples[i])/scale)
			}
		}
	}
	return samples, channels, rate, nil
}

func decodeOgg(data []byte) ([]float32, int, int, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("ogg: %w", err)
	}
	return samples, format.Channels, format.SampleRate, nil
}

// decodeFFmpeg shells out to ffmpeg, transcoding to 16-bit mono PCM wav at
// the canonical rate. Used for mp3/mp4/m4a/webm and as a last-resort
// fallback for unidentified inputs.
func decodeFFmpeg(ctx context.Context, data []byte, format string) ([]float32, int, int, error) {
	tmp, err := os.CreateTemp("", "bragi-decode-*."+format)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, 0, 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, 0, 0, fmt.Errorf("close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", tmp.Name(),
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(TargetSampleRate),
		"-y", "pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, 0, 0, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return decodeWAV(stdout.Bytes())
}
