package backends

import (
	"testing"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
)

func TestDetectionTable(t *testing.T) {
	RegisterAll()

	cases := []struct {
		repo string
		name string
		kind adapters.ModelKind
	}{
		{"UsefulSensors/moonshine-base", "moonshine", adapters.KindSTT},
		{"openai/whisper-large-v3", "whispercpp", adapters.KindSTT},
		{"large-v3-turbo", "whispercpp", adapters.KindSTT},
		{"distil-small.en", "whispercpp", adapters.KindSTT},
		{"hexgrad/Kokoro-82M", "kokoro", adapters.KindTTS},
		{"rhasspy/piper-voices", "piper", adapters.KindTTS},
		{"coqui/XTTS-v2", "xtts", adapters.KindTTS},
	}
	for _, tc := range cases {
		d, ok := adapters.Detect(adapters.DetectConfig{Repo: tc.repo})
		if !ok {
			t.Fatalf("Detect(%q): no backend claimed it", tc.repo)
		}
		if d.Name != tc.name {
			t.Fatalf("Detect(%q)=%s, want %s", tc.repo, d.Name, tc.name)
		}
		if d.Kind != tc.kind {
			t.Fatalf("Detect(%q) kind=%s, want %s", tc.repo, d.Kind, tc.kind)
		}
	}
}

func TestDetectUnknownRepo(t *testing.T) {
	RegisterAll()
	if _, ok := adapters.Detect(adapters.DetectConfig{Repo: "facebook/bart-large"}); ok {
		t.Fatalf("unrelated repo must not match any backend")
	}
}

// A repo naming both engines goes to the more specific detector because
// moonshine registers ahead of the whisper fallback.
func TestDetectOrderPrefersNarrow(t *testing.T) {
	RegisterAll()
	d, ok := adapters.Detect(adapters.DetectConfig{Repo: "moonshine-whisper-hybrid"})
	if !ok || d.Name != "moonshine" {
		t.Fatalf("got %v/%v, want moonshine first", d.Name, ok)
	}
}

func TestRegisterAllIdempotent(t *testing.T) {
	RegisterAll()
	n := len(adapters.Registered())
	RegisterAll()
	if got := len(adapters.Registered()); got != n {
		t.Fatalf("second RegisterAll grew the table from %d to %d", n, got)
	}
}

func TestConstructorsMatchKind(t *testing.T) {
	RegisterAll()
	for _, d := range adapters.Registered() {
		switch d.Kind {
		case adapters.KindSTT:
			if d.NewSTT == nil || d.NewSTT() == nil {
				t.Fatalf("%s: missing STT constructor", d.Name)
			}
		case adapters.KindTTS:
			if d.NewTTS == nil || d.NewTTS() == nil {
				t.Fatalf("%s: missing TTS constructor", d.Name)
			}
		default:
			t.Fatalf("%s: unknown kind %q", d.Name, d.Kind)
		}
	}
}
