package handlers

import (
	"net/http"

	"github.com/bragi-audio/bragi/pkg/core"
)

func (h *Handlers) Translations(w http.ResponseWriter, r *http.Request) {
	up, err := h.parseSTTForm(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	adapter, err := h.Registry.GetSTT(up.model)
	if err != nil {
		if h.Registry.HasModel(up.model) {
			err = core.NewModelNotLoadedError(up.model)
		}
		h.writeError(w, r, err)
		return
	}
	if !adapter.SupportsTranslation() {
		h.writeError(w, r, core.NewUnsupportedFeatureError("translation", up.model))
		return
	}

	pcm, err := h.decodeUpload(r.Context(), up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := adapter.Translate(r.Context(), pcm, up.temperature)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeTranscript(w, up, result, "translate")
}
