package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bragi-audio/bragi/pkg/core"
)

type voiceObject struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Model     string   `json:"model"`
	Custom    bool     `json:"custom"`
	Languages []string `json:"languages"`
}

func (h *Handlers) ListVoices(w http.ResponseWriter, r *http.Request) {
	out := listResponse[voiceObject]{Object: "list", Data: []voiceObject{}}

	for _, binding := range h.Registry.ListVoices() {
		out.Data = append(out.Data, voiceObject{
			ID:        binding.Voice,
			Name:      binding.Voice,
			Model:     binding.Alias,
			Custom:    false,
			Languages: []string{},
		})
	}

	custom, err := h.Voices.ListVoices(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("list voices: %w", err))
		return
	}
	for _, v := range custom {
		out.Data = append(out.Data, voiceObject{
			ID:        v.ID,
			Name:      v.Name,
			Model:     v.AdapterAlias,
			Custom:    true,
			Languages: []string{},
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateVoice(w http.ResponseWriter, r *http.Request) {
	if h.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxFileSize+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, core.NewFileTooLargeError(h.MaxFileSizeLabel))
			return
		}
		h.writeError(w, r, core.NewInvalidRequestError("request body must be multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := r.FormValue("name")
	if name == "" {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("name is required", "name"))
		return
	}
	transcript := r.FormValue("transcript")
	if transcript == "" {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("transcript is required", "transcript"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("file is required", "file"))
		return
	}
	defer file.Close()

	data, err := readUpload(file, h.MaxFileSize)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			h.writeError(w, r, core.NewFileTooLargeError(h.MaxFileSizeLabel))
			return
		}
		h.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	alias := r.FormValue("model")
	if alias != "" {
		if !h.Registry.HasModel(alias) {
			h.writeError(w, r, core.NewInvalidModelError(alias))
			return
		}
		adapter, err := h.Registry.GetTTS(alias)
		if err != nil {
			h.writeError(w, r, core.NewModelNotLoadedError(alias))
			return
		}
		if !adapter.SupportsVoiceCloning() {
			h.writeError(w, r, core.NewVoiceCloningNotSupportedError(alias))
			return
		}
	}

	if h.Registry.HasVoice(name) {
		h.writeError(w, r, core.NewVoiceConflictError(name))
		return
	}
	existing, err := h.Voices.GetByName(r.Context(), name)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("voice lookup: %w", err))
		return
	}
	if existing != nil {
		h.writeError(w, r, core.NewVoiceConflictError(name))
		return
	}

	v, err := h.Voices.CreateVoice(r.Context(), name, transcript, data, header.Filename, alias)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("create voice: %w", err))
		return
	}
	if alias != "" {
		h.Registry.RegisterCustomVoice(v.Name, alias)
	}

	writeJSON(w, http.StatusOK, voiceObject{
		ID:        v.ID,
		Name:      v.Name,
		Model:     v.AdapterAlias,
		Custom:    true,
		Languages: []string{},
	})
}

func (h *Handlers) DeleteVoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	v, err := h.Voices.GetVoiceByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("voice lookup: %w", err))
		return
	}
	if v == nil {
		h.writeError(w, r, core.NewInvalidVoiceError(id))
		return
	}

	h.Registry.UnregisterVoice(v.Name)
	if _, err := h.Voices.DeleteVoice(r.Context(), id); err != nil {
		h.writeError(w, r, fmt.Errorf("delete voice: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}
