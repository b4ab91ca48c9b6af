package audio

import (
	"context"
	"errors"
	"math"
	"testing"
)

func sine(n int, freq float64, rate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	pcm := sine(TargetSampleRate/10, 440, TargetSampleRate)

	encoded, contentType, err := Encode(context.Background(), pcm, TargetSampleRate, "wav")
	if err != nil {
		t.Fatalf("Encode wav: %v", err)
	}
	if contentType != "audio/wav" {
		t.Fatalf("content type=%q, want audio/wav", contentType)
	}

	decoded, err := Decode(context.Background(), encoded, "clip.wav")
	if err != nil {
		t.Fatalf("Decode wav: %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(pcm))
	}
	for i := range pcm {
		if diff := math.Abs(float64(pcm[i] - decoded[i])); diff > 1.0/32767.0 {
			t.Fatalf("sample %d differs by %v, beyond int16 quantization", i, diff)
		}
	}
}

func TestDecodeSniffsWAVWithoutHint(t *testing.T) {
	pcm := sine(1600, 220, TargetSampleRate)
	encoded, _, err := Encode(context.Background(), pcm, TargetSampleRate, "wav")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(context.Background(), encoded, "")
	if err != nil {
		t.Fatalf("Decode without hint: %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(pcm))
	}
}

func TestDecodeResamplesAndDownmixes(t *testing.T) {
	// Stereo 32 kHz input must come out mono at 16 kHz, half the frames.
	const srcRate = 32000
	frames := srcRate / 10
	stereo := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		stereo[i*2] = 0.5
		stereo[i*2+1] = -0.5
	}
	wav := stereoWAV(stereo, srcRate)

	decoded, err := Decode(context.Background(), wav, "in.wav")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := frames / 2
	if len(decoded) < want-2 || len(decoded) > want+2 {
		t.Fatalf("decoded %d samples, want about %d", len(decoded), want)
	}
	for i, s := range decoded {
		if math.Abs(float64(s)) > 1.0/32767.0 {
			t.Fatalf("sample %d=%v, want averaged stereo to cancel to 0", i, s)
		}
	}
}

func TestDecodeRejectsUnknownExtension(t *testing.T) {
	_, err := Decode(context.Background(), []byte("junk"), "clip.xyz")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err=%v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeRejectsGarbageClaimedNative(t *testing.T) {
	if _, err := Decode(context.Background(), []byte("definitely not audio"), "x.flac"); err == nil {
		t.Fatalf("expected decode error for garbage flac")
	}
}

func TestEncodePCMMatchesWAVBody(t *testing.T) {
	pcm := sine(480, 440, TargetSampleRate)

	raw, contentType, err := Encode(context.Background(), pcm, TargetSampleRate, "pcm")
	if err != nil {
		t.Fatalf("Encode pcm: %v", err)
	}
	if contentType != "audio/pcm" {
		t.Fatalf("content type=%q", contentType)
	}
	wav, _, err := Encode(context.Background(), pcm, TargetSampleRate, "wav")
	if err != nil {
		t.Fatalf("Encode wav: %v", err)
	}
	if got, want := len(raw), len(wav)-44; got != want {
		t.Fatalf("pcm body %d bytes, wav data %d bytes", got, want)
	}
	if string(raw) != string(wav[44:]) {
		t.Fatalf("raw pcm differs from wav data chunk")
	}
}

func TestEncodeFLACRoundTrip(t *testing.T) {
	pcm := sine(TargetSampleRate/20, 330, TargetSampleRate)

	encoded, contentType, err := Encode(context.Background(), pcm, TargetSampleRate, "flac")
	if err != nil {
		t.Fatalf("Encode flac: %v", err)
	}
	if contentType != "audio/flac" {
		t.Fatalf("content type=%q", contentType)
	}

	decoded, err := Decode(context.Background(), encoded, "clip.flac")
	if err != nil {
		t.Fatalf("Decode flac: %v", err)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(pcm))
	}
	for i := range pcm {
		if diff := math.Abs(float64(pcm[i] - decoded[i])); diff > 2.0/32767.0 {
			t.Fatalf("sample %d differs by %v", i, diff)
		}
	}
}

func TestEncodeOpusDistinctFromUnknown(t *testing.T) {
	pcm := sine(100, 440, TargetSampleRate)

	_, _, opusErr := Encode(context.Background(), pcm, TargetSampleRate, "opus")
	if !errors.Is(opusErr, ErrFormatNotImplemented) {
		t.Fatalf("opus err=%v, want ErrFormatNotImplemented", opusErr)
	}

	_, _, unknownErr := Encode(context.Background(), pcm, TargetSampleRate, "xyz")
	if !errors.Is(unknownErr, ErrUnsupportedFormat) {
		t.Fatalf("unknown err=%v, want ErrUnsupportedFormat", unknownErr)
	}
	if errors.Is(unknownErr, ErrFormatNotImplemented) {
		t.Fatalf("unknown format must not look like the opus error")
	}
}

func TestFloatToPCM16Clamps(t *testing.T) {
	out := floatToPCM16([]float32{2.0, -2.0})
	if got := int16(uint16(out[0]) | uint16(out[1])<<8); got != 32767 {
		t.Fatalf("positive clamp=%d, want 32767", got)
	}
	if got := int16(uint16(out[2]) | uint16(out[3])<<8); got != -32768 {
		t.Fatalf("negative clamp=%d, want -32768", got)
	}
}

func TestResampleIdentity(t *testing.T) {
	in := sine(100, 440, 16000)
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("identity resample changed length")
	}
}

// stereoWAV builds a 16-bit stereo RIFF container for decode tests.
func stereoWAV(interleaved []float32, sampleRate int) []byte {
	body := floatToPCM16(interleaved)
	header := encodeWAV(nil, sampleRate)[:44]
	out := append([]byte{}, header...)
	// Patch channel count, sizes and rates for stereo.
	putLE16 := func(off int, v uint16) { out[off] = byte(v); out[off+1] = byte(v >> 8) }
	putLE32 := func(off int, v uint32) {
		out[off] = byte(v)
		out[off+1] = byte(v >> 8)
		out[off+2] = byte(v >> 16)
		out[off+3] = byte(v >> 24)
	}
	putLE32(4, uint32(36+len(body)))
	putLE16(22, 2)
	putLE32(28, uint32(sampleRate*4))
	putLE16(32, 4)
	putLE32(40, uint32(len(body)))
	return append(out, body...)
}
