package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// decodeWAV parses a RIFF/WAVE container holding 16-bit PCM or 32-bit
// float samples. Returns interleaved float32 samples, the channel count
// and the sample rate.
func decodeWAV(data []byte) ([]float32, int, int, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, 0, 0, errNotWAV
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		pcmData    []byte
		haveFmt    bool
	)

	off := 12
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := data[off+8:]
		if chunkLen > len(body) {
			chunkLen = len(body)
		}
		body = body[:chunkLen]

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, 0, 0, fmt.Errorf("wav: fmt chunk truncated (%d bytes)", chunkLen)
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			pcmData = body
		}

		// Chunks are word-aligned.
		off += 8 + chunkLen
		if chunkLen%2 == 1 {
			off++
		}
	}

	if !haveFmt || pcmData == nil {
		return nil, 0, 0, errors.New("wav: missing fmt or data chunk")
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, 0, 0, fmt.Errorf("wav: invalid fmt (channels=%d rate=%d)", channels, sampleRate)
	}

	switch {
	case format == wavFormatPCM && bitDepth == 16:
		n := len(pcmData) / 2
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
			samples[i] = float32(s) / 32767.0
		}
		return samples, channels, sampleRate, nil
	case format == wavFormatIEEEFloat && bitDepth == 32:
		n := len(pcmData) / 4
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(pcmData[i*4:]))
		}
		return samples, channels, sampleRate, nil
	default:
		return nil, 0, 0, fmt.Errorf("wav: unsupported encoding (format=%d bits=%d)", format, bitDepth)
	}
}

// encodeWAV writes mono float PCM as a 16-bit PCM RIFF/WAVE container.
func encodeWAV(pcm []float32, sampleRate int) []byte {
	data := floatToPCM16(pcm)
	buf := bytes.NewBuffer(make([]byte, 0, 44+len(data)))

	byteRate := sampleRate * 2 // mono, 2 bytes per sample
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

// floatToPCM16 converts float samples in [-1, 1] to little-endian signed
// 16-bit bytes, rounding and clamping to [-32768, 32767].
func floatToPCM16(pcm []float32) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		v := math.Round(float64(s) * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// PCM16ToFloat converts raw little-endian signed 16-bit samples to float32
// in [-1, 1]. Used by the derived raw-synthesis path.
func PCM16ToFloat(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32767.0
	}
	return out
}
