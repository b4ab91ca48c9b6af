package xtts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/adapters"
)

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(uint16(s))
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

func newEngine(t *testing.T, speakers []string, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if speakers != nil {
		mux.HandleFunc("GET /speakers", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string][]string{"speakers": speakers})
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadDiscoversSpeakers(t *testing.T) {
	srv := newEngine(t, []string{"Claribel Dervla", "Ana Florence"}, http.NewServeMux())

	a := &Adapter{}
	if err := a.Load(context.Background(), "coqui/XTTS-v2", "cuda", adapters.LoadOptions{Endpoint: srv.URL}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := a.AvailableVoices(); len(got) != 2 || got[0] != "Claribel Dervla" {
		t.Fatalf("voices=%v", got)
	}
}

func TestLoadWithoutSpeakersEndpoint(t *testing.T) {
	srv := newEngine(t, nil, http.NewServeMux())

	a := &Adapter{}
	if err := a.Load(context.Background(), "coqui/XTTS-v2", "cpu", adapters.LoadOptions{Endpoint: srv.URL}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// No catalogue means any voice name is accepted downstream.
	if got := a.AvailableVoices(); len(got) != 0 {
		t.Fatalf("voices=%v, want empty", got)
	}
}

func TestSynthesizeRaw(t *testing.T) {
	var got ttsRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tts", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write(pcmBytes(0, 16384))
	})
	srv := newEngine(t, []string{}, mux)

	a := &Adapter{}
	if err := a.Load(context.Background(), "coqui/XTTS-v2", "cpu", adapters.LoadOptions{Endpoint: srv.URL}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	pcm, sr, err := a.SynthesizeRaw(context.Background(), "hello", "Ana Florence", 0.8)
	if err != nil {
		t.Fatalf("SynthesizeRaw: %v", err)
	}
	if got.Text != "hello" || got.Speaker != "Ana Florence" || got.Language != "en" || got.Speed != 0.8 {
		t.Fatalf("request=%+v", got)
	}
	if sr != 24000 || len(pcm) != 2 {
		t.Fatalf("sr=%d pcm=%v", sr, pcm)
	}
}

func TestSynthesizeWithReference(t *testing.T) {
	refAudio := []byte("RIFFfake-reference-wav")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tts_with_reference", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("text") != "cloned speech" || r.FormValue("transcript") != "the reference says this" {
			t.Errorf("fields text=%q transcript=%q", r.FormValue("text"), r.FormValue("transcript"))
		}
		file, _, err := r.FormFile("reference")
		if err != nil {
			t.Errorf("reference part: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if string(data) != string(refAudio) {
				t.Errorf("reference audio mangled in transit")
			}
		}
		w.Write(pcmBytes(100, -100, 100, -100))
	})
	srv := newEngine(t, []string{}, mux)

	a := &Adapter{}
	if err := a.Load(context.Background(), "coqui/XTTS-v2", "cpu", adapters.LoadOptions{Endpoint: srv.URL}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := a.SynthesizeWithReference(context.Background(), "cloned speech", refAudio, "the reference says this", 1.0, "wav")
	if err != nil {
		t.Fatalf("SynthesizeWithReference: %v", err)
	}
	if string(out[:4]) != "RIFF" {
		t.Fatalf("wav output missing RIFF header")
	}
}

func TestStreamingUnsupported(t *testing.T) {
	a := &Adapter{}
	_, err := a.SynthesizeStream(context.Background(), "hi", "v", 1.0, "mp3")

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("err=%v, want *core.Error", err)
	}
	if coreErr.Code != core.CodeUnsupportedFeature {
		t.Fatalf("code=%q", coreErr.Code)
	}
}

func TestCapabilities(t *testing.T) {
	a := &Adapter{}
	if a.SupportsStreaming() {
		t.Fatalf("xtts must not claim streaming")
	}
	if !a.SupportsVoiceCloning() {
		t.Fatalf("xtts supports cloning")
	}
	if a.SampleRate() != 24000 {
		t.Fatalf("sample rate=%d", a.SampleRate())
	}
}
