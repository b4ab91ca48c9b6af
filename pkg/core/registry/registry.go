// Package registry holds the loaded models and the voice projection built
// from them. One instance lives for the process and every lookup the HTTP
// layer makes goes through it.
package registry

import (
	"sort"
	"sync"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/adapters"
)

// ModelInfo describes one registered model for listings and health output.
type ModelInfo struct {
	Alias     string
	ModelType adapters.ModelKind
	Repo      string
	Device    string
	Status    string
}

// VoiceBinding records which model serves a voice name.
type VoiceBinding struct {
	Voice string
	Alias string
}

// Registry maps aliases to adapters and voice names to the TTS model that
// first claimed them. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	stt   map[string]adapters.STTAdapter
	tts   map[string]adapters.TTSAdapter
	info  map[string]ModelInfo
	voice map[string]string // voice name -> tts alias
}

func New() *Registry {
	return &Registry{
		stt:   make(map[string]adapters.STTAdapter),
		tts:   make(map[string]adapters.TTSAdapter),
		info:  make(map[string]ModelInfo),
		voice: make(map[string]string),
	}
}

// RegisterSTT adds a speech-to-text model under alias.
func (r *Registry) RegisterSTT(alias string, adapter adapters.STTAdapter, info ModelInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[alias] = adapter
	r.info[alias] = info
}

// RegisterTTS adds a text-to-speech model under alias and claims its
// built-in voices. A voice already claimed by an earlier model keeps its
// first owner, so registration order decides ambiguous names.
func (r *Registry) RegisterTTS(alias string, adapter adapters.TTSAdapter, info ModelInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[alias] = adapter
	r.info[alias] = info

	for _, v := range adapter.AvailableVoices() {
		if _, claimed := r.voice[v]; !claimed {
			r.voice[v] = alias
		}
	}
}

// RegisterInfo records a model without a live adapter, typically one that
// failed to load. The alias shows up in listings and health output, and
// requests against it resolve to model_not_loaded instead of an unknown
// alias.
func (r *Registry) RegisterInfo(info ModelInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info[info.Alias] = info
}

// GetSTT resolves an alias to its STT adapter.
func (r *Registry) GetSTT(alias string) (adapters.STTAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.stt[alias]
	if !ok {
		return nil, core.NewInvalidModelError(alias)
	}
	return a, nil
}

// GetTTS resolves an alias to its TTS adapter.
func (r *Registry) GetTTS(alias string) (adapters.TTSAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.tts[alias]
	if !ok {
		return nil, core.NewInvalidModelError(alias)
	}
	return a, nil
}

// GetTTSByVoice resolves a voice name to the model that owns it.
func (r *Registry) GetTTSByVoice(voice string) (string, adapters.TTSAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alias, ok := r.voice[voice]
	if !ok {
		return "", nil, core.NewInvalidVoiceError(voice)
	}
	return alias, r.tts[alias], nil
}

// RegisterCustomVoice points a stored voice name at a TTS alias. A name
// pointing at an unknown alias is ignored: the model may simply not be
// configured on this deployment. Custom names shadow built-in ones.
func (r *Registry) RegisterCustomVoice(name, alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tts[alias]; !ok {
		return
	}
	r.voice[name] = alias
}

// UnregisterVoice drops a voice binding. Unknown names are a no-op.
func (r *Registry) UnregisterVoice(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.voice, name)
}

func (r *Registry) HasModel(alias string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.info[alias]
	return ok
}

func (r *Registry) HasVoice(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.voice[name]
	return ok
}

// ListModels returns model descriptions sorted by alias.
func (r *Registry) ListModels() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(r.info))
	for _, info := range r.info {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ListVoices returns every voice binding sorted by voice name.
func (r *Registry) ListVoices() []VoiceBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VoiceBinding, 0, len(r.voice))
	for v, alias := range r.voice {
		out = append(out, VoiceBinding{Voice: v, Alias: alias})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voice < out[j].Voice })
	return out
}

// UnloadAll releases every adapter and empties the registry. Used at
// shutdown after the listener has drained.
func (r *Registry) UnloadAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.stt {
		a.Unload()
	}
	for _, a := range r.tts {
		a.Unload()
	}
	r.stt = make(map[string]adapters.STTAdapter)
	r.tts = make(map[string]adapters.TTSAdapter)
	r.info = make(map[string]ModelInfo)
	r.voice = make(map[string]string)
}
