// Package transcript renders transcription results as subtitle text.
package transcript

import (
	"fmt"
	"strings"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
)

func timestamp(seconds float64, sep string) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	ms := int((seconds - float64(total)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", total/3600, (total%3600)/60, total%60, sep, ms)
}

// FormatSRT renders segments as SubRip cues, numbered from 1.
func FormatSRT(segments []adapters.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", timestamp(seg.Start, ","), timestamp(seg.End, ","))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FormatVTT renders segments as WebVTT, header included.
func FormatVTT(segments []adapters.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s --> %s\n", timestamp(seg.Start, "."), timestamp(seg.End, "."))
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
