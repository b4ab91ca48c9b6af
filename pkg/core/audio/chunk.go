package audio

import (
	"regexp"
	"strings"
)

// MaxChunkChars is the default per-chunk character budget for TTS input.
// Most engines either hard-limit input length or degrade on long passages,
// and synthesized chunks are concatenated afterwards, so boundaries must
// fall between sentences whenever possible.
const MaxChunkChars = 250

var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// ChunkText splits text into ordered pieces of at most maxChars characters.
// Sentence units (split after '.', '!' or '?' followed by whitespace) are
// kept intact where they fit; a single oversized sentence falls back to
// word-boundary splitting. Text that already fits is returned untouched as
// the sole chunk.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = MaxChunkChars
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	current := ""

	for _, sentence := range sentences {
		if strings.TrimSpace(sentence) == "" {
			continue
		}

		if len(current)+len(sentence)+1 <= maxChars {
			current = joinChunk(current, sentence)
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}
		if len(sentence) > maxChars {
			current = ""
			for _, word := range strings.Fields(sentence) {
				if len(current)+len(word)+1 <= maxChars {
					current = joinChunk(current, word)
				} else {
					if current != "" {
						chunks = append(chunks, current)
					}
					current = word
				}
			}
		} else {
			current = sentence
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// splitSentences cuts text after terminal punctuation followed by
// whitespace, keeping the punctuation attached to the preceding unit.
func splitSentences(text string) []string {
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	return strings.Split(marked, "\x00")
}

func joinChunk(current, unit string) string {
	if current == "" {
		return strings.TrimSpace(unit)
	}
	return strings.TrimSpace(current + " " + unit)
}
