package audio

import (
	"strings"
	"testing"
)

func TestChunkTextShortInputReturnedVerbatim(t *testing.T) {
	for _, text := range []string{"", "Hello.", "  padded  ", strings.Repeat("a", 250)} {
		got := ChunkText(text, 250)
		if len(got) != 1 || got[0] != text {
			t.Fatalf("ChunkText(%q)=%v, want single verbatim chunk", text, got)
		}
	}
}

func TestChunkTextSplitsAtSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("Hello world. This is a test. ", 20)
	chunks := ChunkText(text, 50)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 50 {
			t.Fatalf("chunk %d has %d chars, budget 50: %q", i, len(c), c)
		}
		if !strings.HasSuffix(c, ".") {
			t.Fatalf("chunk %d does not end at a sentence boundary: %q", i, c)
		}
	}
}

func TestChunkTextPreservesWordSequence(t *testing.T) {
	inputs := []string{
		strings.Repeat("One two three. Four five! Six seven? ", 30),
		"A sentence without any terminal punctuation that just keeps going " + strings.Repeat("word ", 100),
		strings.Repeat("Short. ", 200),
	}
	for _, text := range inputs {
		chunks := ChunkText(text, 80)
		joined := strings.Join(chunks, " ")
		if got, want := strings.Fields(joined), strings.Fields(text); !equalSlices(got, want) {
			t.Fatalf("word sequence changed:\n got %d words\nwant %d words", len(got), len(want))
		}
	}
}

func TestChunkTextOversizedSentenceFallsBackToWords(t *testing.T) {
	// One unbroken 600-char sentence has to be split at word boundaries.
	text := strings.TrimSpace(strings.Repeat("antidisestablishmentarianism ", 25))
	chunks := ChunkText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected word-level split, got %v", chunks)
	}
	for _, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk over budget: %d chars", len(c))
		}
	}
}

func TestChunkTextSingleWordOverBudget(t *testing.T) {
	word := strings.Repeat("x", 400)
	chunks := ChunkText(word+" tail sentence to force splitting. "+word, 100)
	// An unbreakable word becomes its own chunk; nothing is dropped.
	joined := strings.Join(chunks, " ")
	if !strings.Contains(joined, word) {
		t.Fatalf("oversized word dropped from output")
	}
}

func TestChunkTextWhitespaceOnlyUnitsDiscarded(t *testing.T) {
	text := "First sentence here. " + strings.Repeat(" ", 300) + "Second sentence here."
	chunks := ChunkText(text, 60)
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("empty chunk emitted: %q", c)
		}
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
