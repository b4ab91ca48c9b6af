package moonshine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/adapters"
)

func newEngine(t *testing.T, transcribe http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /transcribe", transcribe)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribe(t *testing.T) {
	var gotContentType string
	srv := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"text": "good morning"})
	})

	a := &Adapter{}
	if err := a.Load(context.Background(), "moonshine/base", "cpu", adapters.LoadOptions{Endpoint: srv.URL}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// One second of silence at the canonical rate.
	res, err := a.Transcribe(context.Background(), make([]float32, 16000), adapters.TranscribeOptions{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotContentType != "audio/wav" {
		t.Fatalf("content type=%q", gotContentType)
	}
	if res.Text != "good morning" || res.Language != "en" {
		t.Fatalf("result=%+v", res)
	}
	if res.Duration != 1.0 {
		t.Fatalf("duration=%v, want 1.0", res.Duration)
	}
	if len(res.Segments) != 1 || res.Segments[0].End != 1.0 {
		t.Fatalf("segments=%+v", res.Segments)
	}
}

func TestEmptyTextHasNoSegments(t *testing.T) {
	srv := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	})

	a := &Adapter{}
	if err := a.Load(context.Background(), "moonshine/base", "cpu", adapters.LoadOptions{Endpoint: srv.URL}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := a.Transcribe(context.Background(), make([]float32, 160), adapters.TranscribeOptions{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(res.Segments) != 0 {
		t.Fatalf("segments=%+v, want none for empty text", res.Segments)
	}
}

func TestTranslateUnsupported(t *testing.T) {
	a := &Adapter{}
	_, err := a.Translate(context.Background(), make([]float32, 160), 0)

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		t.Fatalf("err=%v, want *core.Error", err)
	}
	if coreErr.Code != core.CodeUnsupportedFeature {
		t.Fatalf("code=%q, want %q", coreErr.Code, core.CodeUnsupportedFeature)
	}
}

func TestTranscribeBeforeLoad(t *testing.T) {
	a := &Adapter{}
	if _, err := a.Transcribe(context.Background(), make([]float32, 160), adapters.TranscribeOptions{}); err == nil {
		t.Fatalf("expected not-loaded error")
	}
}

func TestCapabilities(t *testing.T) {
	a := &Adapter{}
	if a.SupportsTranslation() {
		t.Fatalf("moonshine must not claim translation")
	}
	if got := a.SupportedLanguages(); len(got) != 1 || got[0] != "en" {
		t.Fatalf("languages=%v", got)
	}
	if a.SampleRate() != 16000 {
		t.Fatalf("sample rate=%d", a.SampleRate())
	}
}
