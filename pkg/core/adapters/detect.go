package adapters

// DetectConfig is the free-text model description each backend's detector
// inspects, primarily the configured repository identifier.
type DetectConfig struct {
	Repo string
}

// ModelKind separates the two adapter families.
type ModelKind string

const (
	KindSTT ModelKind = "stt"
	KindTTS ModelKind = "tts"
)

// Detector is a registered backend: a pure predicate over the model
// config plus a constructor. The first detector that matches a configured
// model wins, so registration order is significant.
type Detector struct {
	Name   string
	Kind   ModelKind
	Detect func(DetectConfig) bool
	NewSTT func() STTAdapter
	NewTTS func() TTSAdapter
}

var detectors []Detector

// Register appends a backend detector. Called from backend package init;
// ordering rule: STT backends before TTS backends, narrow detectors
// before broad ones (generic "whisper" matching goes last among STT).
func Register(d Detector) {
	detectors = append(detectors, d)
}

// Detect returns the first registered backend claiming the config, in
// registration order.
func Detect(cfg DetectConfig) (Detector, bool) {
	for _, d := range detectors {
		if d.Detect(cfg) {
			return d, true
		}
	}
	return Detector{}, false
}

// Registered lists the detectors in match order.
func Registered() []Detector {
	out := make([]Detector, len(detectors))
	copy(out, detectors)
	return out
}
