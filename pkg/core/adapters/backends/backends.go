// Package backends assembles the built-in adapter detectors.
package backends

import (
	"sync"

	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/adapters/kokoro"
	"github.com/bragi-audio/bragi/pkg/core/adapters/moonshine"
	"github.com/bragi-audio/bragi/pkg/core/adapters/piper"
	"github.com/bragi-audio/bragi/pkg/core/adapters/whispercpp"
	"github.com/bragi-audio/bragi/pkg/core/adapters/xtts"
)

var once sync.Once

// RegisterAll wires the built-in backends in match order: STT before TTS,
// narrow detectors before broad ones. The whispercpp detector claims any
// repo mentioning whisper, so it goes last among the STT backends.
func RegisterAll() {
	once.Do(func() {
		adapters.Register(moonshine.Detector())
		adapters.Register(whispercpp.Detector())
		adapters.Register(kokoro.Detector())
		adapters.Register(piper.Detector())
		adapters.Register(xtts.Detector())
	})
}
