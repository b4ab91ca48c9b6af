package audio

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// ErrFormatNotImplemented marks a format the API recognizes but this build
// cannot produce (opus). Distinct from ErrUnsupportedFormat so clients can
// tell "never valid" from "not available here".
var ErrFormatNotImplemented = errors.New("output format not implemented")

// ContentTypes maps output formats to their response content type.
var ContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"pcm":  "audio/pcm",
	"flac": "audio/flac",
	"opus": "audio/opus",
	"aac":  "audio/aac",
}

// Encode converts mono float PCM into the requested output container.
// Returns the encoded bytes and the HTTP content type.
func Encode(ctx context.Context, pcm []float32, sampleRate int, format string) ([]byte, string, error) {
	contentType := ContentTypes[format]

	switch format {
	case "wav":
		return encodeWAV(pcm, sampleRate), contentType, nil
	case "pcm":
		return floatToPCM16(pcm), contentType, nil
	case "flac":
		out, err := encodeFLAC(pcm, sampleRate)
		if err != nil {
			return nil, "", err
		}
		return out, contentType, nil
	case "mp3":
		out, err := encodeMP3(ctx, pcm, sampleRate)
		if err != nil {
			return nil, "", err
		}
		return out, contentType, nil
	case "opus":
		return nil, "", fmt.Errorf("%w: opus", ErrFormatNotImplemented)
	default:
		return nil, "", fmt.Errorf("%w: %s (supported: flac, mp3, pcm, wav)", ErrUnsupportedFormat, format)
	}
}

const flacBlockSize = 4096

// encodeFLAC writes mono PCM16 into a FLAC stream using verbatim
// subframes. Lossless is what matters here, not ratio.
func encodeFLAC(pcm []float32, sampleRate int) ([]byte, error) {
	raw := floatToPCM16(pcm)
	samples := make([]int32, len(pcm))
	for i := range samples {
		samples[i] = int32(int16(uint16(raw[i*2]) | uint16(raw[i*2+1])<<8))
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     1,
		BitsPerSample: 16,
		NSamples:      uint64(len(samples)),
		// MD5 of the unencoded sample stream, required by the header.
		MD5sum: md5.Sum(raw),
	}

	var buf bytes.Buffer
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("flac encoder: %w", err)
	}

	for start, num := 0, 0; start < len(samples); start, num = start+flacBlockSize, num+1 {
		end := start + flacBlockSize
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[start:end]

		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(len(block)),
				SampleRate:        uint32(sampleRate),
				Channels:          frame.ChannelsMono,
				BitsPerSample:     16,
				Num:               uint64(num),
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   block,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			return nil, fmt.Errorf("flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flac close: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeMP3 shells out to ffmpeg's lame encoder: 128 kbps, mono,
// quality 2, matching the reference output settings.
func encodeMP3(ctx context.Context, pcm []float32, sampleRate int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", "128k",
		"-q:a", "2",
		"-f", "mp3",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(floatToPCM16(pcm))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg mp3: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
